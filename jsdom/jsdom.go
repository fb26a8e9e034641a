//go:build js && wasm

// Package jsdom implements marker.Host on the live browser DOM for Go
// compiled to WebAssembly.
//
// Listener callbacks run on the JS event loop, so they are delivered one
// at a time.
package jsdom

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"syscall/js"

	"github.com/hazyhaar/viewmark/marker"
)

// Document is a marker.Host backed by the page's global document.
type Document struct {
	window   js.Value
	document js.Value

	mu    sync.Mutex
	funcs map[int]js.Func
	next  int
}

// New returns a Document bound to the global window and document.
func New() *Document {
	g := js.Global()
	return &Document{
		window:   g.Get("window"),
		document: g.Get("document"),
		funcs:    make(map[int]js.Func),
	}
}

// ElementsByTagName implements marker.Host.
func (d *Document) ElementsByTagName(_ context.Context, tag string) (els []marker.Element, err error) {
	defer recoverJS(&err, "getElementsByTagName "+tag)

	coll := d.document.Call("getElementsByTagName", tag)
	n := coll.Get("length").Int()
	els = make([]marker.Element, 0, n)
	for i := 0; i < n; i++ {
		els = append(els, &Element{v: coll.Index(i)})
	}
	return els, nil
}

// Viewport implements marker.Host.
func (d *Document) Viewport(_ context.Context) (vp marker.Viewport, err error) {
	defer recoverJS(&err, "viewport")

	vp.InnerWidth = number(d.window.Get("innerWidth"))
	vp.InnerHeight = number(d.window.Get("innerHeight"))
	if de := d.document.Get("documentElement"); truthy(de) {
		vp.ClientWidth = number(de.Get("clientWidth"))
		vp.ClientHeight = number(de.Get("clientHeight"))
	}
	return vp, nil
}

// AddEventListener implements marker.Host. The returned function removes
// the listener and releases its js.Func.
func (d *Document) AddEventListener(target marker.Target, event string, fn func()) (remove func(), err error) {
	defer recoverJS(&err, "addEventListener "+event)

	t := d.document
	if target == marker.TargetWindow {
		t = d.window
	}

	cb := js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		return nil
	})
	t.Call("addEventListener", event, cb)

	d.mu.Lock()
	d.next++
	id := d.next
	d.funcs[id] = cb
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.Call("removeEventListener", event, cb)
			d.mu.Lock()
			delete(d.funcs, id)
			d.mu.Unlock()
			cb.Release()
		})
	}, nil
}

// Element wraps a DOM element.
type Element struct {
	v js.Value
}

// Rect implements marker.Element.
func (e *Element) Rect(_ context.Context) (r marker.Rect, err error) {
	defer recoverJS(&err, "getBoundingClientRect")

	b := e.v.Call("getBoundingClientRect")
	return marker.Rect{
		Top:    number(b.Get("top")),
		Left:   number(b.Get("left")),
		Bottom: number(b.Get("bottom")),
		Right:  number(b.Get("right")),
	}, nil
}

// SetClass implements marker.Element.
func (e *Element) SetClass(_ context.Context, class string) (err error) {
	defer recoverJS(&err, "set className")
	e.v.Set("className", class)
	return nil
}

// RemoveClass implements marker.Element.
func (e *Element) RemoveClass(_ context.Context) (err error) {
	defer recoverJS(&err, "remove class")
	e.v.Call("removeAttribute", "class")
	return nil
}

// Path implements marker.Element. Same-tag siblings are indexed from 1.
func (e *Element) Path() string {
	var parts []string
	for n := e.v; truthy(n) && n.Get("nodeType").Int() == 1; n = n.Get("parentElement") {
		parts = append(parts, step(n))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func step(n js.Value) string {
	tag := strings.ToLower(n.Get("tagName").String())
	parent := n.Get("parentElement")
	if !truthy(parent) {
		return tag
	}
	idx, total := 0, 0
	for c := parent.Get("firstElementChild"); truthy(c); c = c.Get("nextElementSibling") {
		if strings.ToLower(c.Get("tagName").String()) != tag {
			continue
		}
		total++
		if c.Equal(n) {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", tag, idx)
	}
	return tag
}

func truthy(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

func number(v js.Value) float64 {
	if v.Type() != js.TypeNumber {
		return 0
	}
	return v.Float()
}

// recoverJS turns a panic raised by a throwing JS call into an error.
func recoverJS(err *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	if jsErr, ok := r.(js.Error); ok {
		*err = fmt.Errorf("jsdom: %s: %w", op, jsErr)
		return
	}
	*err = fmt.Errorf("jsdom: %s: %v", op, r)
}

// Release removes nothing from the page but frees every js.Func still
// registered. Use it when the Go program is about to exit.
func (d *Document) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, f := range d.funcs {
		f.Release()
		delete(d.funcs, id)
	}
}
