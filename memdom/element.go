package memdom

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/viewmark/marker"
)

// Element wraps an element node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// AppendChild appends child to e and returns child.
func (e *Element) AppendChild(child *Element) *Element {
	if child.node.Parent != nil {
		child.node.Parent.RemoveChild(child.node)
	}
	e.node.AppendChild(child.node)
	return child
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(key, val string) *Element {
	setAttr(e.node, key, val)
	return e
}

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(key string) (string, bool) {
	return getAttr(e.node, key)
}

// Class returns the class attribute and whether it is present.
func (e *Element) Class() (string, bool) {
	return getAttr(e.node, "class")
}

// HasClass reports whether name is one of the element's classes.
func (e *Element) HasClass(name string) bool {
	c, ok := e.Class()
	if !ok {
		return false
	}
	return slices.Contains(strings.Fields(c), name)
}

// SetRect sets the bounding rectangle the element reports.
func (e *Element) SetRect(r marker.Rect) *Element {
	e.doc.rects[e.node] = r
	return e
}

// Rect implements marker.Element.
func (e *Element) Rect(_ context.Context) (marker.Rect, error) {
	return e.doc.rects[e.node], nil
}

// SetClass implements marker.Element.
func (e *Element) SetClass(_ context.Context, class string) error {
	setAttr(e.node, "class", class)
	return nil
}

// RemoveClass implements marker.Element.
func (e *Element) RemoveClass(_ context.Context) error {
	removeAttr(e.node, "class")
	return nil
}

// Path implements marker.Element. It returns an XPath such as
// /html/body/div[2], indexing only tags with same-name siblings.
func (e *Element) Path() string {
	var parts []string
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		parts = append(parts, step(n))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func step(n *html.Node) string {
	if n.Parent == nil {
		return n.Data
	}
	idx, total := 0, 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		total++
		if c == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", n.Data, idx)
	}
	return n.Data
}
