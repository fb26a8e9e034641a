// Package marker keeps elements of configured tag types annotated with a
// CSS class while, and only while, they are fully inside the viewport.
//
// A Marker owns its configuration and talks to the page through a Host.
// Init registers a scroll listener on the document and a resize listener
// on the window, then scans once; every subsequent event triggers a full
// re-scan. Each scan recollects the matching elements from the live
// document, measures them against the current viewport, and either sets
// the class attribute to exactly the configured class or removes the
// attribute.
package marker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/viewmark/markrec"
)

// Config selects the elements to mark and the class they receive.
type Config struct {
	TagsToMark    []string `yaml:"tags_to_mark" json:"tagsToMark"`
	ClassToAppend string   `yaml:"class_to_append" json:"classToAppend"`
}

// normalize drops exact duplicate tags, keeping first occurrence order.
func (c Config) normalize() Config {
	seen := make(map[string]bool, len(c.TagsToMark))
	tags := make([]string, 0, len(c.TagsToMark))
	for _, t := range c.TagsToMark {
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	c.TagsToMark = tags
	return c
}

// ReportFunc receives every completed scan.
type ReportFunc func(ctx context.Context, scan markrec.Scan)

// Option configures a Marker.
type Option func(*Marker)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Marker) { m.logger = l }
}

// WithReporter sets the function called after each scan.
func WithReporter(fn ReportFunc) Option {
	return func(m *Marker) { m.report = fn }
}

// WithPage labels reports with the page they belong to.
func WithPage(pageURL, pageID string) Option {
	return func(m *Marker) {
		m.pageURL = pageURL
		m.pageID = pageID
	}
}

// WithIDGenerator sets the generator for scan IDs. Default: markrec.NewID.
func WithIDGenerator(gen func() string) Option {
	return func(m *Marker) { m.newID = gen }
}

// Marker marks in-view elements on one host.
type Marker struct {
	host    Host
	cfg     Config
	logger  *slog.Logger
	report  ReportFunc
	newID   func() string
	pageURL string
	pageID  string

	mu      sync.Mutex
	seq     uint64
	removes []func()
}

// New creates a Marker for host. Call Init to start marking.
func New(host Host, cfg Config, opts ...Option) *Marker {
	m := &Marker{
		host:   host,
		cfg:    cfg.normalize(),
		logger: slog.Default(),
		newID:  markrec.NewID,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Initialize creates a Marker and calls Init on it.
func Initialize(ctx context.Context, host Host, cfg Config, opts ...Option) (*Marker, error) {
	m := New(host, cfg, opts...)
	if err := m.Init(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the marker's configuration.
func (m *Marker) Config() Config {
	return m.cfg
}

// Init registers the scroll and resize listeners and performs one
// immediate scan. Calling Init again registers a second pair of
// listeners; avoiding that is the caller's responsibility.
//
// ctx is kept for the scans triggered by events and should live as long
// as the marker. Only listener registration errors are returned; scan
// failures are logged.
func (m *Marker) Init(ctx context.Context) error {
	removeScroll, err := m.host.AddEventListener(TargetDocument, EventScroll, func() {
		m.handle(ctx, markrec.TriggerScroll)
	})
	if err != nil {
		return fmt.Errorf("marker: listen %s: %w", EventScroll, err)
	}

	removeResize, err := m.host.AddEventListener(TargetWindow, EventResize, func() {
		m.handle(ctx, markrec.TriggerResize)
	})
	if err != nil {
		removeScroll()
		return fmt.Errorf("marker: listen %s: %w", EventResize, err)
	}

	m.mu.Lock()
	m.removes = append(m.removes, removeScroll, removeResize)
	m.mu.Unlock()

	m.handle(ctx, markrec.TriggerInit)
	return nil
}

// Scan performs one manual scan and returns its report. The report is
// also delivered to the reporter. A zero Scan with a nil error means the
// marker has no tags to mark.
func (m *Marker) Scan(ctx context.Context) (markrec.Scan, error) {
	return m.scan(ctx, markrec.TriggerManual)
}

// Close unregisters every listener registered by Init. The marker can be
// re-initialised afterwards.
func (m *Marker) Close() {
	m.mu.Lock()
	removes := m.removes
	m.removes = nil
	m.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
}

func (m *Marker) handle(ctx context.Context, trigger markrec.Trigger) {
	if _, err := m.scan(ctx, trigger); err != nil {
		m.logger.Warn("marker: scan incomplete",
			"trigger", trigger, "page_id", m.pageID, "error", err)
	}
}

type collected struct {
	tag string
	el  Element
}

func (m *Marker) scan(ctx context.Context, trigger markrec.Trigger) (markrec.Scan, error) {
	if len(m.cfg.TagsToMark) == 0 {
		return markrec.Scan{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	// Gather the full set before touching any element.
	var elems []collected
	for _, tag := range m.cfg.TagsToMark {
		found, err := m.host.ElementsByTagName(ctx, tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("marker: elements %q: %w", tag, err))
			continue
		}
		for _, el := range found {
			elems = append(elems, collected{tag: tag, el: el})
		}
	}

	if r, ok := m.host.(Releaser); ok && len(elems) > 0 {
		defer func() {
			els := make([]Element, len(elems))
			for i, c := range elems {
				els[i] = c.el
			}
			r.Release(ctx, els)
		}()
	}

	vp, err := m.host.Viewport(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("marker: viewport: %w", err))
		return markrec.Scan{}, errors.Join(errs...)
	}

	m.seq++
	rep := markrec.Scan{
		ID:       m.newID(),
		PageURL:  m.pageURL,
		PageID:   m.pageID,
		Seq:      m.seq,
		Trigger:  trigger,
		Width:    vp.Width(),
		Height:   vp.Height(),
		Elements: make([]markrec.ElementState, 0, len(elems)),
	}

	for _, c := range elems {
		rect, err := c.el.Rect(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("marker: rect %s: %w", c.el.Path(), err))
			continue
		}

		in := InView(rect, vp)
		if in {
			err = c.el.SetClass(ctx, m.cfg.ClassToAppend)
		} else {
			err = c.el.RemoveClass(ctx)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("marker: annotate %s: %w", c.el.Path(), err))
			continue
		}

		if in {
			rep.Marked++
		} else {
			rep.Cleared++
		}
		rep.Elements = append(rep.Elements, markrec.ElementState{
			Tag:    c.tag,
			Path:   c.el.Path(),
			Rect:   rect,
			InView: in,
		})
	}
	rep.Timestamp = time.Now().UnixMilli()

	m.logger.Debug("marker: scan",
		"trigger", trigger, "page_id", m.pageID,
		"marked", rep.Marked, "cleared", rep.Cleared)

	if m.report != nil {
		m.report(ctx, rep)
	}
	return rep, errors.Join(errs...)
}
