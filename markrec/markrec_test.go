package markrec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestScanWireFields(t *testing.T) {
	s := &Scan{
		ID:      NewID(),
		PageID:  "page-1",
		Seq:     3,
		Trigger: TriggerResize,
		Width:   1024,
		Height:  768,
		Marked:  1,
		Elements: []ElementState{
			{Tag: "div", Path: "/html/body/div", Rect: Rect{Top: 10, Left: 10, Bottom: 100, Right: 200}, InView: true},
		},
		Timestamp: 1708700000000,
	}

	data, err := MarshalScan(s)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "seq", "trigger", "width", "height", "marked", "cleared", "elements", "timestamp"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if _, ok := raw["page_url"]; ok {
		t.Errorf("empty page_url should be omitted: %s", data)
	}
	if !strings.Contains(string(data), `"in_view":true`) {
		t.Errorf("element state not encoded: %s", data)
	}

	got, err := UnmarshalScan(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Trigger != TriggerResize {
		t.Errorf("Trigger: got %q, want %q", got.Trigger, TriggerResize)
	}
	if got.Elements[0].Rect.Right != 200 {
		t.Errorf("Rect.Right: got %v, want 200", got.Elements[0].Rect.Right)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatalf("NewID returned duplicate %q", a)
	}
	u, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("NewID not a UUID: %v", err)
	}
	if u.Version() != 7 {
		t.Errorf("version: got %d, want 7", u.Version())
	}
}

func TestHashHTML(t *testing.T) {
	html := []byte(`<div class="visible">x</div>`)
	h1 := HashHTML(html)
	h2 := HashHTML(html)
	if h1 != h2 {
		t.Errorf("HashHTML not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("HashHTML length: got %d, want 64", len(h1))
	}
	if h1 == HashHTML([]byte(`<div>x</div>`)) {
		t.Error("different HTML hashed to the same digest")
	}
}
