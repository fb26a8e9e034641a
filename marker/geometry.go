package marker

import "github.com/hazyhaar/viewmark/markrec"

// Rect is an element's bounding rectangle relative to the viewport.
type Rect = markrec.Rect

// Viewport carries the raw dimensions a host exposes. Width and Height
// resolve the effective size: the window's inner dimension when the host
// reports one, the document root's client dimension otherwise.
type Viewport struct {
	InnerWidth   float64
	InnerHeight  float64
	ClientWidth  float64
	ClientHeight float64
}

// Width returns the effective viewport width.
func (v Viewport) Width() float64 {
	if v.InnerWidth != 0 {
		return v.InnerWidth
	}
	return v.ClientWidth
}

// Height returns the effective viewport height.
func (v Viewport) Height() float64 {
	if v.InnerHeight != 0 {
		return v.InnerHeight
	}
	return v.ClientHeight
}

// InView reports whether r lies entirely inside v. Partially visible
// rectangles are not in view.
func InView(r Rect, v Viewport) bool {
	return r.Top >= 0 &&
		r.Left >= 0 &&
		r.Bottom <= v.Height() &&
		r.Right <= v.Width()
}
