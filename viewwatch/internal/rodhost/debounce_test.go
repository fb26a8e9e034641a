package rodhost

import (
	"strings"
	"testing"
	"time"
)

func TestCoalesce_RepeatedEvent(t *testing.T) {
	got := coalesce([]string{"document:scroll", "document:scroll", "document:scroll"})
	if len(got) != 1 || got[0] != "document:scroll" {
		t.Fatalf("coalesce: got %v, want [document:scroll]", got)
	}
}

func TestCoalesce_KeepsFirstOccurrenceOrder(t *testing.T) {
	got := coalesce([]string{
		"window:resize", "document:scroll", "window:resize", "document:scroll", "window:resize",
	})
	if strings.Join(got, ",") != "window:resize,document:scroll" {
		t.Errorf("coalesce: got %v", got)
	}
}

func TestCoalesce_Empty(t *testing.T) {
	if got := coalesce(nil); got != nil {
		t.Errorf("coalesce(nil): got %v, want nil", got)
	}
}

func TestDebouncer_ZeroWindowDispatchesEachEvent(t *testing.T) {
	var flushed [][]string
	d := newDebouncer(debounceConfig{}, func(keys []string) {
		flushed = append(flushed, append([]string(nil), keys...))
	})

	for i := 0; i < 3; i++ {
		if !d.add("document:scroll") {
			t.Fatal("add: want immediate flush with zero window")
		}
	}
	if len(flushed) != 3 {
		t.Fatalf("flushes: got %d, want 3", len(flushed))
	}
	if d.timerC() != nil {
		t.Error("timer armed with coalescing disabled")
	}
}

func TestDebouncer_WindowCoalesces(t *testing.T) {
	var flushed [][]string
	d := newDebouncer(debounceConfig{Window: 20 * time.Millisecond}, func(keys []string) {
		flushed = append(flushed, append([]string(nil), keys...))
	})

	d.add("document:scroll")
	d.add("document:scroll")
	d.add("window:resize")
	if len(flushed) != 0 {
		t.Fatalf("flushed before window: %v", flushed)
	}

	select {
	case <-d.timerC():
		d.flush()
	case <-time.After(time.Second):
		t.Fatal("debounce timer never fired")
	}

	if len(flushed) != 1 || strings.Join(flushed[0], ",") != "document:scroll,window:resize" {
		t.Errorf("flushed: got %v", flushed)
	}
	if d.timerC() != nil {
		t.Error("timer still armed after flush")
	}
}

func TestDebouncer_MaxBufferFlushes(t *testing.T) {
	var flushes int
	d := newDebouncer(debounceConfig{Window: time.Hour, MaxBuffer: 2}, func([]string) { flushes++ })

	d.add("document:scroll")
	if !d.add("document:scroll") {
		t.Error("add: want flush at MaxBuffer")
	}
	if flushes != 1 {
		t.Errorf("flushes: got %d, want 1", flushes)
	}
}

func TestParseEventKey(t *testing.T) {
	tests := []struct {
		key         string
		target, evt string
		ok          bool
	}{
		{"document:scroll", "document", "scroll", true},
		{"window:resize", "window", "resize", true},
		{"window:", "", "", false},
		{"body:scroll", "", "", false},
		{"scroll", "", "", false},
	}
	for _, tt := range tests {
		target, evt, ok := parseEventKey(tt.key)
		if target != tt.target || evt != tt.evt || ok != tt.ok {
			t.Errorf("parseEventKey(%q): got (%q, %q, %v)", tt.key, target, evt, ok)
		}
	}
}
