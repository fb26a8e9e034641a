// Package markrec defines the records emitted by viewmark scans.
// These are the public API contract: consumers import this package to
// receive marking results without depending on a particular host.
package markrec

// Trigger names what caused a scan.
type Trigger string

const (
	TriggerInit   Trigger = "init"   // immediate scan performed by Init
	TriggerScroll Trigger = "scroll" // document scroll event
	TriggerResize Trigger = "resize" // window resize event
	TriggerManual Trigger = "manual" // explicit Scan call
)

// Rect is an element's bounding rectangle relative to the viewport,
// in CSS pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// ElementState is the outcome of one element within a scan.
type ElementState struct {
	Tag    string `json:"tag"`
	Path   string `json:"path,omitempty"` // XPath when the host can compute one
	Rect   Rect   `json:"rect"`
	InView bool   `json:"in_view"`
}

// Scan is the result of one full pass over the configured tags.
type Scan struct {
	ID        string         `json:"id"` // UUIDv7
	PageURL   string         `json:"page_url,omitempty"`
	PageID    string         `json:"page_id,omitempty"`
	Seq       uint64         `json:"seq"` // monotonically increasing per marker
	Trigger   Trigger        `json:"trigger"`
	Width     float64        `json:"width"`  // effective viewport width
	Height    float64        `json:"height"` // effective viewport height
	Marked    int            `json:"marked"`
	Cleared   int            `json:"cleared"`
	Elements  []ElementState `json:"elements"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
}
