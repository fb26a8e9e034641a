// Package rodhost implements marker.Host on top of a Chrome tab driven
// through Rod.
//
// Page-side listeners report events through a Runtime binding; the host
// receives them as Runtime.bindingCalled events and runs the Go handlers
// one at a time on a single loop goroutine, like a browser event loop.
package rodhost

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/viewmark/marker"
)

// bindingName is the window function page listeners call.
const bindingName = "__viewmark_binding"

//go:embed listen.js
var listenJS string

//go:embed paths.js
var pathsJS string

const viewportJS = `() => ({
	innerWidth: window.innerWidth || 0,
	innerHeight: window.innerHeight || 0,
	clientWidth: (document.documentElement && document.documentElement.clientWidth) || 0,
	clientHeight: (document.documentElement && document.documentElement.clientHeight) || 0,
})`

// Config for creating a Host.
type Config struct {
	Page *rod.Page

	// DebounceWindow coalesces bursts of the same event into one dispatch
	// fired when the window expires. Zero dispatches every event.
	DebounceWindow time.Duration
	// DebounceMax dispatches immediately once this many events are
	// pending. Default: 1000.
	DebounceMax int

	Logger *slog.Logger
}

// navigatedKey is queued by the frame listener; it never names a page
// event, so it cannot collide with a listener key.
const navigatedKey = "\x00navigated"

var errNotStarted = errors.New("rodhost: host not started")

// Host is a marker.Host backed by a Rod page.
type Host struct {
	page   *rod.Page
	logger *slog.Logger

	events    chan string
	debouncer *debouncer

	// install adds the page-side listener for key. Replaced in tests.
	install func(ctx context.Context, key string) error
	// release drops remote element handles. Replaced in tests.
	release func(ctx context.Context, el *element) error

	mu        sync.Mutex
	ctx       context.Context // nil until Start
	cancel    context.CancelFunc
	nextID    int
	handlers  map[string][]handler
	installed map[string]bool
}

type handler struct {
	id int
	fn func()
}

// New creates a Host for the given page. Call Start before registering
// listeners.
func New(cfg Config) *Host {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Host{
		page:      cfg.Page,
		logger:    cfg.Logger,
		events:    make(chan string, 256),
		handlers:  make(map[string][]handler),
		installed: make(map[string]bool),
	}
	h.install = h.installListener
	h.release = releaseElement

	h.debouncer = newDebouncer(debounceConfig{
		Window:    cfg.DebounceWindow,
		MaxBuffer: cfg.DebounceMax,
	}, h.onFlush)

	return h
}

// Start adds the binding and runs the event loop until ctx is cancelled
// or Close is called. The binding survives navigation; page-side
// listeners are re-installed whenever the main frame navigates.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.ctx != nil {
		h.mu.Unlock()
		return fmt.Errorf("rodhost: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	h.ctx, h.cancel = ctx, cancel
	h.mu.Unlock()

	if err := (proto.PageEnable{}).Call(h.page); err != nil {
		cancel()
		return fmt.Errorf("rodhost: enable page domain: %w", err)
	}
	err := proto.RuntimeAddBinding{Name: bindingName}.Call(h.page)
	if err != nil {
		cancel()
		return fmt.Errorf("rodhost: add binding: %w", err)
	}

	go h.listenPage(ctx)
	go h.loop(ctx)

	return nil
}

// Close stops event delivery. Page-side listeners stay installed but
// their events are dropped.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

// AddEventListener implements marker.Host. The page-side listener for a
// (target, event) pair is installed once; Go handlers are kept per pair.
// It fails until Start has been called.
func (h *Host) AddEventListener(target marker.Target, event string, fn func()) (func(), error) {
	key := eventKey(target, event)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil {
		return nil, errNotStarted
	}
	if !h.installed[key] {
		if err := h.install(h.ctx, key); err != nil {
			return nil, fmt.Errorf("rodhost: install %s listener: %w", key, err)
		}
		h.installed[key] = true
		h.logger.Debug("rodhost: listener installed", "key", key)
	}

	h.nextID++
	id := h.nextID
	h.handlers[key] = append(h.handlers[key], handler{id: id, fn: fn})

	return func() { h.removeHandler(key, id) }, nil
}

func (h *Host) removeHandler(key string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs := h.handlers[key]
	for i, hd := range hs {
		if hd.id == id {
			h.handlers[key] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

func (h *Host) installListener(ctx context.Context, key string) error {
	target, event, _ := parseEventKey(key)
	_, err := h.page.Context(ctx).Eval(listenJS, bindingName, target, event)
	return err
}

// reinstall re-adds the page-side listener of every key that still has
// handlers. A navigation drops them along with the old document.
func (h *Host) reinstall() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil {
		return
	}
	h.installed = make(map[string]bool, len(h.handlers))
	for key, hs := range h.handlers {
		if len(hs) == 0 {
			continue
		}
		if err := h.install(h.ctx, key); err != nil {
			h.logger.Warn("rodhost: reinstall listener failed", "key", key, "error", err)
			continue
		}
		h.installed[key] = true
	}
	h.logger.Debug("rodhost: listeners reinstalled after navigation", "keys", len(h.installed))
}

// Release implements marker.Releaser. It drops the remote object of every
// element handed out by ElementsByTagName.
func (h *Host) Release(ctx context.Context, elems []marker.Element) {
	for _, me := range elems {
		e, ok := me.(*element)
		if !ok {
			continue
		}
		if err := h.release(ctx, e); err != nil {
			h.logger.Debug("rodhost: release element", "path", e.path, "error", err)
		}
	}
}

func releaseElement(ctx context.Context, e *element) error {
	if e.el == nil {
		return nil
	}
	return e.el.Context(ctx).Release()
}

// ElementsByTagName implements marker.Host.
func (h *Host) ElementsByTagName(ctx context.Context, tag string) ([]marker.Element, error) {
	page := h.page.Context(ctx)

	els, err := page.ElementsByJS(rod.Eval(`(tag) => Array.from(document.getElementsByTagName(tag))`, tag))
	if err != nil {
		return nil, fmt.Errorf("rodhost: elements %q: %w", tag, err)
	}

	// Paths are informational; a DOM change between the two calls only
	// costs the report its locations.
	var paths []string
	if res, err := page.Eval(pathsJS, tag); err == nil {
		for _, p := range res.Value.Arr() {
			paths = append(paths, p.Str())
		}
	}
	if len(paths) != len(els) {
		paths = nil
	}

	out := make([]marker.Element, len(els))
	for i, el := range els {
		e := &element{el: el}
		if paths != nil {
			e.path = paths[i]
		}
		out[i] = e
	}
	return out, nil
}

// Viewport implements marker.Host.
func (h *Host) Viewport(ctx context.Context) (marker.Viewport, error) {
	res, err := h.page.Context(ctx).Eval(viewportJS)
	if err != nil {
		return marker.Viewport{}, fmt.Errorf("rodhost: viewport: %w", err)
	}
	v := res.Value
	return marker.Viewport{
		InnerWidth:   v.Get("innerWidth").Num(),
		InnerHeight:  v.Get("innerHeight").Num(),
		ClientWidth:  v.Get("clientWidth").Num(),
		ClientHeight: v.Get("clientHeight").Num(),
	}, nil
}

// ScrollBy scrolls the window and reports whether the position changed.
// The page fires scroll on the document, which reaches registered
// handlers through the binding.
func (h *Host) ScrollBy(ctx context.Context, dx, dy float64) (bool, error) {
	res, err := h.page.Context(ctx).Eval(`(x, y) => {
		const bx = window.scrollX, by = window.scrollY;
		window.scrollBy(x, y);
		return window.scrollX !== bx || window.scrollY !== by;
	}`, dx, dy)
	if err != nil {
		return false, fmt.Errorf("rodhost: scroll: %w", err)
	}
	return res.Value.Bool(), nil
}

// ScrollTo scrolls the window to an absolute position.
func (h *Host) ScrollTo(ctx context.Context, x, y float64) error {
	_, err := h.page.Context(ctx).Eval(`(x, y) => window.scrollTo(x, y)`, x, y)
	if err != nil {
		return fmt.Errorf("rodhost: scroll: %w", err)
	}
	return nil
}

// HTML serialises the current DOM as outer HTML.
func (h *Host) HTML(ctx context.Context) ([]byte, error) {
	res, err := h.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("rodhost: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// listenPage forwards binding calls from page listeners and main-frame
// navigations to the loop.
func (h *Host) listenPage(ctx context.Context) {
	enqueue := func(key string) {
		select {
		case h.events <- key:
		case <-ctx.Done():
		}
	}
	h.page.Context(ctx).EachEvent(
		func(e *proto.RuntimeBindingCalled) {
			if e.Name == bindingName {
				enqueue(e.Payload)
			}
		},
		func(e *proto.PageFrameNavigated) {
			if e.Frame != nil && e.Frame.ParentID == "" {
				enqueue(navigatedKey)
			}
		},
	)()
}

// loop is the single goroutine on which handlers run.
func (h *Host) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case key := <-h.events:
			if key == navigatedKey {
				h.reinstall()
				continue
			}
			h.debouncer.add(key)

		case <-h.debouncer.timerC():
			h.debouncer.flush()
		}
	}
}

// onFlush is called by the debouncer with the coalesced event keys.
func (h *Host) onFlush(keys []string) {
	for _, key := range keys {
		h.dispatch(key)
	}
}

func (h *Host) dispatch(key string) {
	if _, _, ok := parseEventKey(key); !ok {
		h.logger.Warn("rodhost: malformed binding payload", "payload", key)
		return
	}

	h.mu.Lock()
	hs := append([]handler(nil), h.handlers[key]...)
	h.mu.Unlock()

	for _, hd := range hs {
		hd.fn()
	}
}

func eventKey(target marker.Target, event string) string {
	return target.String() + ":" + event
}

func parseEventKey(key string) (target, event string, ok bool) {
	target, event, ok = strings.Cut(key, ":")
	if !ok || event == "" {
		return "", "", false
	}
	switch target {
	case marker.TargetDocument.String(), marker.TargetWindow.String():
		return target, event, true
	}
	return "", "", false
}
