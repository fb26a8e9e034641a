// Package config handles viewwatch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/viewmark/marker"
)

// Config is the top-level viewwatch configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Marker   marker.Config  `yaml:"marker"`
	Viewport ViewportConfig `yaml:"viewport"`
	Debounce DebounceConfig `yaml:"debounce"`
	Pages    []PageConfig   `yaml:"pages"`
	Sinks    []SinkConfig   `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
	Mode            string        `yaml:"mode"` // headless | headful
	XvfbDisplay     string        `yaml:"xvfb_display"`
	NavTimeout      time.Duration `yaml:"nav_timeout"`
}

// ViewportConfig is the emulated window size.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DebounceConfig controls event coalescing. A zero window re-scans on
// every event.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// ScrollConfig drives automatic scrolling. A zero step disables it.
type ScrollConfig struct {
	Step     int           `yaml:"step"`
	Interval time.Duration `yaml:"interval"`
}

// PageConfig defines a page to mark. Empty fields inherit the global
// marker and viewport settings.
type PageConfig struct {
	ID               string         `yaml:"id"`
	URL              string         `yaml:"url"`
	TagsToMark       []string       `yaml:"tags_to_mark"`
	ClassToAppend    *string        `yaml:"class_to_append"`
	Viewport         ViewportConfig `yaml:"viewport"`
	Scroll           ScrollConfig   `yaml:"scroll"`
	SnapshotInterval time.Duration  `yaml:"snapshot_interval"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout
	Path string `yaml:"path"` // optional file instead of stdout
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = ViewportConfig{Width: 1024, Height: 768}
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 1000
	}
	for i := range c.Pages {
		p := &c.Pages[i]
		if p.ID == "" {
			p.ID = fmt.Sprintf("page-%d", i+1)
		}
		if p.Viewport.Width <= 0 || p.Viewport.Height <= 0 {
			p.Viewport = c.Viewport
		}
		if p.Scroll.Step != 0 && p.Scroll.Interval <= 0 {
			p.Scroll.Interval = time.Second
		}
		if p.SnapshotInterval <= 0 {
			p.SnapshotInterval = 4 * time.Hour
		}
	}
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if p.URL == "" {
			return fmt.Errorf("config: page %q has no url", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("config: duplicate page id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// MarkerConfig resolves the marker configuration for a page: page
// fields override the global ones.
func (c *Config) MarkerConfig(p PageConfig) marker.Config {
	mc := marker.Config{
		TagsToMark:    c.Marker.TagsToMark,
		ClassToAppend: c.Marker.ClassToAppend,
	}
	if len(p.TagsToMark) > 0 {
		mc.TagsToMark = p.TagsToMark
	}
	if p.ClassToAppend != nil {
		mc.ClassToAppend = *p.ClassToAppend
	}
	return mc
}
