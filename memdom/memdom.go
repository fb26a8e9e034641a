// Package memdom is an in-memory document that satisfies marker.Host.
//
// There is no layout engine: every element's bounding rectangle is set
// explicitly with SetRect, and window and root dimensions with
// SetWindowSize and SetClientSize. Events are dispatched synchronously on
// the caller's goroutine, in registration order.
package memdom

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/viewmark/marker"
)

// Document is a parsed HTML tree plus the geometry a browser would provide.
type Document struct {
	root  *html.Node
	rects map[*html.Node]marker.Rect

	vp marker.Viewport

	mu        sync.Mutex
	nextID    int
	listeners map[listenerKey][]listener
}

type listenerKey struct {
	target marker.Target
	event  string
}

type listener struct {
	id int
	fn func()
}

// New returns an empty document: <html><head></head><body></body></html>.
func New() *Document {
	doc, err := html.Parse(strings.NewReader(""))
	if err != nil {
		// html.Parse only fails on reader errors.
		panic("memdom: parse empty document: " + err.Error())
	}
	return newDocument(doc)
}

// Parse reads an HTML document. Element rectangles start out zeroed.
func Parse(r io.Reader) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}
	return newDocument(doc), nil
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		rects:     make(map[*html.Node]marker.Rect),
		listeners: make(map[listenerKey][]listener),
	}
}

// SetWindowSize sets window.innerWidth and window.innerHeight. Zero means
// the host does not report them.
func (d *Document) SetWindowSize(width, height float64) {
	d.vp.InnerWidth = width
	d.vp.InnerHeight = height
}

// SetClientSize sets documentElement.clientWidth and clientHeight.
func (d *Document) SetClientSize(width, height float64) {
	d.vp.ClientWidth = width
	d.vp.ClientHeight = height
}

// Resize changes the window size and fires resize on the window.
func (d *Document) Resize(width, height float64) {
	d.SetWindowSize(width, height)
	d.Dispatch(marker.TargetWindow, marker.EventResize)
}

// ScrollBy scrolls the viewport by (dx, dy): every element moves by
// (-dx, -dy). It then fires scroll on the document.
func (d *Document) ScrollBy(dx, dy float64) {
	for n, r := range d.rects {
		d.rects[n] = marker.Rect{
			Top:    r.Top - dy,
			Left:   r.Left - dx,
			Bottom: r.Bottom - dy,
			Right:  r.Right - dx,
		}
	}
	d.Dispatch(marker.TargetDocument, marker.EventScroll)
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	n := findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// CreateElement returns a detached element with the given tag.
func (d *Document) CreateElement(tag string) *Element {
	name := strings.ToLower(tag)
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
	})
}

// GetElementByID returns the first element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	n := findFirst(d.root, func(n *html.Node) bool {
		v, ok := getAttr(n, "id")
		return n.Type == html.ElementNode && ok && v == id
	})
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// GetElementsByTagName returns every element with the given tag in
// document order. Matching is case-insensitive; "*" matches all elements.
func (d *Document) GetElementsByTagName(tag string) []*Element {
	name := strings.ToLower(tag)
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (name == "*" || n.Data == name) {
			out = append(out, d.wrap(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// Dispatch fires event on target, calling listeners in registration order.
func (d *Document) Dispatch(target marker.Target, event string) {
	d.mu.Lock()
	ls := append([]listener(nil), d.listeners[listenerKey{target, event}]...)
	d.mu.Unlock()

	for _, l := range ls {
		l.fn()
	}
}

// ListenerCount returns how many listeners are registered for event on
// target.
func (d *Document) ListenerCount(target marker.Target, event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[listenerKey{target, event}])
}

// Render serialises the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// ElementsByTagName implements marker.Host.
func (d *Document) ElementsByTagName(_ context.Context, tag string) ([]marker.Element, error) {
	found := d.GetElementsByTagName(tag)
	out := make([]marker.Element, len(found))
	for i, e := range found {
		out[i] = e
	}
	return out, nil
}

// Viewport implements marker.Host.
func (d *Document) Viewport(_ context.Context) (marker.Viewport, error) {
	return d.vp, nil
}

// AddEventListener implements marker.Host.
func (d *Document) AddEventListener(target marker.Target, event string, fn func()) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	key := listenerKey{target, event}
	d.listeners[key] = append(d.listeners[key], listener{id: id, fn: fn})

	return func() { d.removeListener(key, id) }, nil
}

func (d *Document) removeListener(key listenerKey, id int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ls := d.listeners[key]
	for i, l := range ls {
		if l.id == id {
			d.listeners[key] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
