package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `
browser:
  mode: headful
marker:
  tags_to_mark: [p, img]
  class_to_append: in-view
viewport:
  width: 1280
  height: 720
debounce:
  window: 100ms
pages:
  - id: home
    url: https://example.com
  - url: https://example.org/article
    tags_to_mark: [h2]
    class_to_append: ""
    viewport: {width: 375, height: 667}
    scroll: {step: 300}
sinks:
  - type: stdout
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewmark.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Browser.Mode != "headful" {
		t.Errorf("Mode: got %q", cfg.Browser.Mode)
	}
	if cfg.Browser.RecycleInterval != 4*time.Hour || cfg.Browser.NavTimeout != 30*time.Second {
		t.Errorf("browser defaults: %+v", cfg.Browser)
	}
	if cfg.Debounce.Window != 100*time.Millisecond || cfg.Debounce.MaxBuffer != 1000 {
		t.Errorf("debounce: %+v", cfg.Debounce)
	}
	if len(cfg.Pages) != 2 {
		t.Fatalf("pages: got %d", len(cfg.Pages))
	}

	home := cfg.Pages[0]
	if home.Viewport != (ViewportConfig{Width: 1280, Height: 720}) {
		t.Errorf("home viewport inherits global: got %+v", home.Viewport)
	}
	if home.Scroll.Step != 0 || home.Scroll.Interval != 0 {
		t.Errorf("home scroll should stay disabled: %+v", home.Scroll)
	}

	article := cfg.Pages[1]
	if article.ID != "page-2" {
		t.Errorf("generated id: got %q", article.ID)
	}
	if article.Viewport.Width != 375 {
		t.Errorf("article viewport: %+v", article.Viewport)
	}
	if article.Scroll.Interval != time.Second {
		t.Errorf("scroll interval default: got %s", article.Scroll.Interval)
	}
}

func TestMarkerConfigOverrides(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	home := cfg.MarkerConfig(cfg.Pages[0])
	if strings.Join(home.TagsToMark, ",") != "p,img" || home.ClassToAppend != "in-view" {
		t.Errorf("home: got %+v", home)
	}

	// An explicit empty class overrides the global one.
	article := cfg.MarkerConfig(cfg.Pages[1])
	if strings.Join(article.TagsToMark, ",") != "h2" || article.ClassToAppend != "" {
		t.Errorf("article: got %+v", article)
	}
}

func TestParseRejectsInvalidPages(t *testing.T) {
	tests := map[string]string{
		"missing url":  "pages:\n  - id: a\n",
		"duplicate id": "pages:\n  - {id: a, url: https://a}\n  - {id: a, url: https://b}\n",
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("want error for missing file")
	}
}
