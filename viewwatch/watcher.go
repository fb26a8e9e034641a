// Package viewwatch runs visibility markers inside Chrome tabs. For each
// configured page it opens a tab with a fixed viewport, attaches a
// marker through a CDP-backed host, and forwards every scan report and
// periodic marked-DOM snapshot to sinks.
//
// Chrome is a disposable component: when the browser manager recycles
// it, markers are closed first and every page is re-marked afterwards.
package viewwatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/viewmark/marker"
	"github.com/hazyhaar/viewmark/markrec"
	"github.com/hazyhaar/viewmark/viewwatch/internal/browser"
	"github.com/hazyhaar/viewmark/viewwatch/internal/config"
	"github.com/hazyhaar/viewmark/viewwatch/internal/rodhost"
	"github.com/hazyhaar/viewmark/viewwatch/internal/sink"
)

// Watcher is the top-level orchestrator. It manages the browser, the
// per-page markers and the sinks.
type Watcher struct {
	cfg    *config.Config
	mgr    *browser.Manager
	sinkR  *sink.Router
	pages  map[string]*page // keyed by page ID
	mu     sync.Mutex
	logger *slog.Logger
}

// page is one marked tab.
type page struct {
	cfg    config.PageConfig
	tab    *browser.Tab
	host   *rodhost.Host
	marker *marker.Marker
	cancel context.CancelFunc
}

// New creates a Watcher from configuration.
func New(cfg *config.Config, logger *slog.Logger, sinks ...sink.Sink) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ApplyDefaults()

	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		Mode:            browser.ParseMode(cfg.Browser.Mode),
		XvfbDisplay:     cfg.Browser.XvfbDisplay,
		ScreenWidth:     maxWidth(cfg),
		ScreenHeight:    maxHeight(cfg),
		Logger:          logger,
	})

	return &Watcher{
		cfg:    cfg,
		mgr:    mgr,
		sinkR:  sink.NewRouter(logger, sinks...),
		pages:  make(map[string]*page),
		logger: logger,
	}
}

// Start launches the browser and marks all configured pages. A page that
// fails to open is logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("viewwatch: start browser: %w", err)
	}

	w.mgr.SetRecycleCallback(&browser.RecycleCallback{
		BeforeRecycle: w.closeAllPages,
		AfterRecycle:  func(*rod.Browser) { w.reopenPages(ctx) },
	})

	for _, pc := range w.cfg.Pages {
		if err := w.MarkPage(ctx, pc); err != nil {
			w.logger.Error("viewwatch: failed to mark page",
				"url", pc.URL, "id", pc.ID, "error", err)
		}
	}

	return nil
}

// MarkPage opens a tab for pc and starts marking it. Page settings left
// empty inherit the global configuration.
func (w *Watcher) MarkPage(ctx context.Context, pc config.PageConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pages[pc.ID]; ok {
		return fmt.Errorf("viewwatch: page %q already marked", pc.ID)
	}
	return w.markPageLocked(ctx, pc)
}

func (w *Watcher) markPageLocked(ctx context.Context, pc config.PageConfig) error {
	if pc.Viewport.Width <= 0 || pc.Viewport.Height <= 0 {
		pc.Viewport = w.cfg.Viewport
	}
	if pc.SnapshotInterval <= 0 {
		pc.SnapshotInterval = 4 * time.Hour
	}

	tab, err := browser.OpenTab(ctx, w.mgr, browser.TabOptions{
		URL:        pc.URL,
		ID:         pc.ID,
		Width:      pc.Viewport.Width,
		Height:     pc.Viewport.Height,
		NavTimeout: w.cfg.Browser.NavTimeout,
	})
	if err != nil {
		return fmt.Errorf("viewwatch: open tab: %w", err)
	}

	pctx, cancel := context.WithCancel(ctx)

	host := rodhost.New(rodhost.Config{
		Page:           tab.Page,
		DebounceWindow: w.cfg.Debounce.Window,
		DebounceMax:    w.cfg.Debounce.MaxBuffer,
		Logger:         w.logger,
	})
	if err := host.Start(pctx); err != nil {
		cancel()
		tab.Close()
		return fmt.Errorf("viewwatch: start host: %w", err)
	}

	mk, err := marker.Initialize(pctx, host, w.cfg.MarkerConfig(pc),
		marker.WithLogger(w.logger),
		marker.WithPage(pc.URL, pc.ID),
		marker.WithReporter(w.forwardScan),
	)
	if err != nil {
		cancel()
		tab.Close()
		return fmt.Errorf("viewwatch: init marker: %w", err)
	}

	p := &page{cfg: pc, tab: tab, host: host, marker: mk, cancel: cancel}
	w.pages[pc.ID] = p

	go w.pageLoop(pctx, p)

	w.logger.Info("viewwatch: marking page",
		"url", pc.URL, "id", pc.ID,
		"tags", mk.Config().TagsToMark, "class", mk.Config().ClassToAppend,
		"width", pc.Viewport.Width, "height", pc.Viewport.Height)
	return nil
}

// UnmarkPage stops marking a page and closes its tab. Classes already
// applied stay in place.
func (w *Watcher) UnmarkPage(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pages[id]
	if !ok {
		return fmt.Errorf("viewwatch: unknown page %q", id)
	}
	w.closePageLocked(id, p)
	return nil
}

// Scan forces a re-scan of a page and returns the report.
func (w *Watcher) Scan(ctx context.Context, id string) (markrec.Scan, error) {
	p, err := w.page(id)
	if err != nil {
		return markrec.Scan{}, err
	}
	return p.marker.Scan(ctx)
}

// ScrollPage scrolls a page by (dx, dy). The resulting scroll event
// triggers a re-scan through the page's listener. It reports whether the
// page actually moved.
func (w *Watcher) ScrollPage(ctx context.Context, id string, dx, dy float64) (bool, error) {
	p, err := w.page(id)
	if err != nil {
		return false, err
	}
	return p.host.ScrollBy(ctx, dx, dy)
}

// Snapshot serialises the marked DOM of a page and emits it to sinks.
func (w *Watcher) Snapshot(ctx context.Context, id string) (*markrec.Snapshot, error) {
	p, err := w.page(id)
	if err != nil {
		return nil, err
	}
	return w.emitSnapshot(ctx, p)
}

// Pages returns the IDs of the pages being marked.
func (w *Watcher) Pages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]string, 0, len(w.pages))
	for id := range w.pages {
		ids = append(ids, id)
	}
	return ids
}

// Stop closes every page, the sinks and the browser.
func (w *Watcher) Stop() {
	w.closeAllPages()
	w.sinkR.Close()
	w.mgr.Close()
}

func (w *Watcher) page(id string) (*page, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pages[id]
	if !ok {
		return nil, fmt.Errorf("viewwatch: unknown page %q", id)
	}
	return p, nil
}

func (w *Watcher) forwardScan(ctx context.Context, scan markrec.Scan) {
	if err := w.sinkR.SendScan(ctx, scan); err != nil {
		w.logger.Error("viewwatch: send scan failed", "page_id", scan.PageID, "error", err)
	}
}

func (w *Watcher) emitSnapshot(ctx context.Context, p *page) (*markrec.Snapshot, error) {
	html, err := p.host.HTML(ctx)
	if err != nil {
		return nil, err
	}

	snap := markrec.Snapshot{
		ID:        markrec.NewID(),
		PageURL:   p.cfg.URL,
		PageID:    p.cfg.ID,
		HTML:      html,
		HTMLHash:  markrec.HashHTML(html),
		Timestamp: time.Now().UnixMilli(),
	}

	if err := w.sinkR.SendSnapshot(ctx, snap); err != nil {
		w.logger.Error("viewwatch: send snapshot failed", "page_id", p.cfg.ID, "error", err)
	}
	w.logger.Info("viewwatch: snapshot emitted",
		"url", p.cfg.URL, "id", snap.ID, "size", len(html))
	return &snap, nil
}

// pageLoop emits periodic snapshots and drives automatic scrolling.
func (w *Watcher) pageLoop(ctx context.Context, p *page) {
	snapTicker := time.NewTicker(p.cfg.SnapshotInterval)
	defer snapTicker.Stop()

	var scrollC <-chan time.Time
	if p.cfg.Scroll.Step != 0 {
		interval := p.cfg.Scroll.Interval
		if interval <= 0 {
			interval = time.Second
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		scrollC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-snapTicker.C:
			if _, err := w.emitSnapshot(ctx, p); err != nil {
				w.logger.Error("viewwatch: snapshot failed", "page_id", p.cfg.ID, "error", err)
			}

		case <-scrollC:
			w.autoScroll(ctx, p)
		}
	}
}

// autoScroll advances the page by one step, wrapping to the top once the
// end of the document is reached.
func (w *Watcher) autoScroll(ctx context.Context, p *page) {
	moved, err := p.host.ScrollBy(ctx, 0, float64(p.cfg.Scroll.Step))
	if err != nil {
		w.logger.Warn("viewwatch: auto-scroll failed", "page_id", p.cfg.ID, "error", err)
		return
	}
	if moved {
		return
	}
	if err := p.host.ScrollTo(ctx, 0, 0); err != nil {
		w.logger.Warn("viewwatch: auto-scroll wrap failed", "page_id", p.cfg.ID, "error", err)
	}
}

func (w *Watcher) closePageLocked(id string, p *page) {
	p.marker.Close()
	p.cancel()
	p.host.Close()
	if err := p.tab.Close(); err != nil {
		w.logger.Debug("viewwatch: close tab", "id", id, "error", err)
	}
	delete(w.pages, id)
	w.logger.Info("viewwatch: stopped marking page", "id", id)
}

func (w *Watcher) closeAllPages() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, p := range w.pages {
		w.closePageLocked(id, p)
	}
}

// reopenPages re-marks every configured page after a browser recycle.
func (w *Watcher) reopenPages(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, pc := range w.cfg.Pages {
		if _, ok := w.pages[pc.ID]; ok {
			continue
		}
		if err := w.markPageLocked(ctx, pc); err != nil {
			w.logger.Error("viewwatch: re-mark after recycle failed",
				"url", pc.URL, "id", pc.ID, "error", err)
		}
	}
}

func maxWidth(cfg *config.Config) int {
	m := cfg.Viewport.Width
	for _, p := range cfg.Pages {
		m = max(m, p.Viewport.Width)
	}
	return m
}

func maxHeight(cfg *config.Config) int {
	m := cfg.Viewport.Height
	for _, p := range cfg.Pages {
		m = max(m, p.Viewport.Height)
	}
	return m
}
