package marker

import "context"

// Target is the object an event listener is attached to.
type Target int

const (
	TargetDocument Target = iota
	TargetWindow
)

func (t Target) String() string {
	switch t {
	case TargetDocument:
		return "document"
	case TargetWindow:
		return "window"
	}
	return "unknown"
}

// Event names the marker listens for.
const (
	EventScroll = "scroll"
	EventResize = "resize"
)

// Element is a node of the host document that the marker can measure and
// annotate.
type Element interface {
	// Rect returns the bounding rectangle relative to the viewport.
	Rect(ctx context.Context) (Rect, error)
	// SetClass replaces the class attribute with class.
	SetClass(ctx context.Context, class string) error
	// RemoveClass removes the class attribute entirely.
	RemoveClass(ctx context.Context) error
	// Path locates the element for reports. It may be empty.
	Path() string
}

// Host is the DOM-like environment a Marker runs against.
//
// Implementations must deliver listener callbacks serially: the marker
// assumes one event is handled at a time, as in a browser event loop.
type Host interface {
	// ElementsByTagName returns the live elements of the given tag in
	// document order.
	ElementsByTagName(ctx context.Context, tag string) ([]Element, error)
	// Viewport returns the current viewport dimensions.
	Viewport(ctx context.Context) (Viewport, error)
	// AddEventListener subscribes fn to event on target. The returned
	// function unsubscribes it.
	AddEventListener(target Target, event string, fn func()) (remove func(), err error)
}

// Releaser is implemented by hosts whose elements hold resources. After
// each scan the marker passes back every element it collected, whether
// or not the scan completed.
type Releaser interface {
	Release(ctx context.Context, elems []Element)
}
