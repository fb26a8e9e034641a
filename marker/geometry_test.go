package marker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/viewmark/markrec"
)

func TestInView(t *testing.T) {
	vp := Viewport{InnerWidth: 1024, InnerHeight: 768}

	tests := []struct {
		name string
		rect Rect
		want bool
	}{
		{"inside", Rect{Top: 10, Left: 10, Bottom: 100, Right: 200}, true},
		{"exact bounds", Rect{Top: 0, Left: 0, Bottom: 768, Right: 1024}, true},
		{"zero rect", Rect{}, true},
		{"above", Rect{Top: -5, Left: 10, Bottom: 100, Right: 200}, false},
		{"left of", Rect{Top: 10, Left: -0.5, Bottom: 100, Right: 200}, false},
		{"below", Rect{Top: 700, Left: 10, Bottom: 768.5, Right: 200}, false},
		{"right of", Rect{Top: 10, Left: 900, Bottom: 100, Right: 1025}, false},
		{"larger than viewport", Rect{Top: 0, Left: 0, Bottom: 2000, Right: 1024}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InView(tt.rect, vp); got != tt.want {
				t.Errorf("InView(%+v): got %v, want %v", tt.rect, got, tt.want)
			}
		})
	}
}

func TestViewportFallback(t *testing.T) {
	tests := []struct {
		name  string
		vp    Viewport
		wantW float64
		wantH float64
	}{
		{"inner wins", Viewport{InnerWidth: 800, InnerHeight: 600, ClientWidth: 780, ClientHeight: 580}, 800, 600},
		{"client when inner missing", Viewport{ClientWidth: 780, ClientHeight: 580}, 780, 580},
		{"per dimension", Viewport{InnerWidth: 800, ClientHeight: 580}, 800, 580},
		{"nothing", Viewport{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w, h := tt.vp.Width(), tt.vp.Height(); w != tt.wantW || h != tt.wantH {
				t.Errorf("got %vx%v, want %vx%v", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNormalizeDropsDuplicates(t *testing.T) {
	got := Config{TagsToMark: []string{"p", "div", "p", "img", "div"}}.normalize()
	if strings.Join(got.TagsToMark, ",") != "p,div,img" {
		t.Errorf("got %v", got.TagsToMark)
	}
}

// fakeHost records every call and can be told to fail.
type fakeHost struct {
	calls     []string
	elems     map[string][]Element
	vp        Viewport
	failTag   string
	failVP    bool
	listeners int
}

func (h *fakeHost) ElementsByTagName(_ context.Context, tag string) ([]Element, error) {
	h.calls = append(h.calls, "elements:"+tag)
	if tag == h.failTag {
		return nil, errors.New("query failed")
	}
	return h.elems[tag], nil
}

func (h *fakeHost) Viewport(context.Context) (Viewport, error) {
	h.calls = append(h.calls, "viewport")
	if h.failVP {
		return Viewport{}, errors.New("no window")
	}
	return h.vp, nil
}

func (h *fakeHost) AddEventListener(Target, string, func()) (func(), error) {
	h.listeners++
	return func() { h.listeners-- }, nil
}

type fakeElement struct {
	path    string
	rect    Rect
	rectErr error
	class   *string
}

func (e *fakeElement) Rect(context.Context) (Rect, error) { return e.rect, e.rectErr }
func (e *fakeElement) SetClass(_ context.Context, c string) error {
	e.class = &c
	return nil
}
func (e *fakeElement) RemoveClass(context.Context) error {
	e.class = nil
	return nil
}
func (e *fakeElement) Path() string { return e.path }

func TestEmptyConfigIsNoOp(t *testing.T) {
	h := &fakeHost{vp: Viewport{InnerWidth: 10, InnerHeight: 10}}
	reported := false
	m, err := Initialize(context.Background(), h, Config{ClassToAppend: "x"},
		WithReporter(func(context.Context, markrec.Scan) { reported = true }))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.calls) != 0 {
		t.Errorf("empty config queried the host: %v", h.calls)
	}
	if reported {
		t.Error("empty config produced a report")
	}
	if h.listeners != 2 {
		t.Errorf("listeners: got %d, want 2", h.listeners)
	}
}

func TestCollectsAllBeforeViewport(t *testing.T) {
	h := &fakeHost{
		vp:    Viewport{InnerWidth: 10, InnerHeight: 10},
		elems: map[string][]Element{"a": {&fakeElement{}}, "b": {&fakeElement{}}},
	}
	m := New(h, Config{TagsToMark: []string{"a", "b"}, ClassToAppend: "x"})
	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := "elements:a,elements:b,viewport"
	if got := strings.Join(h.calls, ","); got != want {
		t.Errorf("calls: got %s, want %s", got, want)
	}
}

func TestScanContinuesPastElementErrors(t *testing.T) {
	good := &fakeElement{path: "/good", rect: Rect{Bottom: 5, Right: 5}}
	bad := &fakeElement{path: "/bad", rectErr: errors.New("detached")}
	h := &fakeHost{
		vp:      Viewport{InnerWidth: 10, InnerHeight: 10},
		elems:   map[string][]Element{"div": {bad, good}},
		failTag: "p",
	}
	m := New(h, Config{TagsToMark: []string{"p", "div"}, ClassToAppend: "x"})

	rep, err := m.Scan(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	for _, want := range []string{`elements "p"`, "/bad", "detached"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if good.class == nil || *good.class != "x" {
		t.Error("healthy element was not marked")
	}
	if rep.Marked != 1 || len(rep.Elements) != 1 {
		t.Errorf("report: marked=%d elements=%d, want 1 and 1", rep.Marked, len(rep.Elements))
	}
}

func TestViewportErrorAbortsScan(t *testing.T) {
	el := &fakeElement{rect: Rect{Bottom: 1, Right: 1}}
	h := &fakeHost{failVP: true, elems: map[string][]Element{"div": {el}}}
	m := New(h, Config{TagsToMark: []string{"div"}, ClassToAppend: "x"})

	if _, err := m.Scan(context.Background()); err == nil {
		t.Fatal("expected viewport error")
	}
	if el.class != nil {
		t.Error("element annotated without a viewport")
	}
}

// releasingHost records the elements handed back after each scan.
type releasingHost struct {
	fakeHost
	released [][]Element
}

func (h *releasingHost) Release(_ context.Context, elems []Element) {
	h.released = append(h.released, elems)
}

func TestReleaserGetsEveryCollectedElement(t *testing.T) {
	a := &fakeElement{path: "/a", rect: Rect{Bottom: 1, Right: 1}}
	b := &fakeElement{path: "/b", rectErr: errors.New("detached")}
	h := &releasingHost{fakeHost: fakeHost{
		vp:    Viewport{InnerWidth: 10, InnerHeight: 10},
		elems: map[string][]Element{"div": {a, b}},
	}}
	m := New(h, Config{TagsToMark: []string{"div"}, ClassToAppend: "x"})

	m.Scan(context.Background())
	m.Scan(context.Background())

	if len(h.released) != 2 {
		t.Fatalf("release calls: got %d, want 2", len(h.released))
	}
	for i, got := range h.released {
		if len(got) != 2 || got[0] != Element(a) || got[1] != Element(b) {
			t.Errorf("release %d: got %v", i, got)
		}
	}
}

func TestReleaserCalledWhenViewportFails(t *testing.T) {
	el := &fakeElement{}
	h := &releasingHost{fakeHost: fakeHost{failVP: true, elems: map[string][]Element{"div": {el}}}}
	m := New(h, Config{TagsToMark: []string{"div"}})

	if _, err := m.Scan(context.Background()); err == nil {
		t.Fatal("expected viewport error")
	}
	if len(h.released) != 1 || len(h.released[0]) != 1 {
		t.Errorf("released: got %v, want one call with one element", h.released)
	}
}
