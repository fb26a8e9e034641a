package main

import (
	"reflect"
	"testing"
	"time"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"p", []string{"p"}},
		{"p, img ,,div", []string{"p", "img", "div"}},
	}
	for _, tt := range tests {
		if got := splitTags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitTags(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFlagConfig(t *testing.T) {
	cfg := flagConfig(options{
		tags: "p,img", class: "in-view",
		width: 800, height: 600,
		scroll: 200, scrollInterval: 2 * time.Second,
	}, "https://example.com")

	if !reflect.DeepEqual(cfg.Marker.TagsToMark, []string{"p", "img"}) || cfg.Marker.ClassToAppend != "in-view" {
		t.Errorf("marker config: %+v", cfg.Marker)
	}
	if cfg.Viewport.Width != 800 || cfg.Viewport.Height != 600 {
		t.Errorf("viewport: %+v", cfg.Viewport)
	}
	if len(cfg.Pages) != 1 || cfg.Pages[0].URL != "https://example.com" || cfg.Pages[0].Scroll.Step != 200 {
		t.Errorf("pages: %+v", cfg.Pages)
	}
}
