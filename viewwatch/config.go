package viewwatch

import (
	"github.com/hazyhaar/viewmark/viewwatch/internal/config"
)

// Config is the top-level viewwatch configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines a page to mark.
type PageConfig = config.PageConfig

// ViewportConfig is the emulated window size.
type ViewportConfig = config.ViewportConfig

// ScrollConfig drives automatic scrolling.
type ScrollConfig = config.ScrollConfig

// DebounceConfig controls event coalescing.
type DebounceConfig = config.DebounceConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
