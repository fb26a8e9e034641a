package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is a stealth page navigated to the URL being marked, with its
// viewport pinned to the configured size.
type Tab struct {
	Page    *rod.Page
	PageURL string
	PageID  string
	Width   int
	Height  int
}

// TabOptions describes the tab to open.
type TabOptions struct {
	URL    string
	ID     string
	Width  int
	Height int
	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration
}

// OpenTab creates a tab, emulates the viewport, and navigates to the URL.
func OpenTab(ctx context.Context, mgr *Manager, opts TabOptions) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if opts.Width > 0 && opts.Height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			page.Close()
			return nil, fmt.Errorf("browser: set viewport: %w", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(opts.URL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", opts.URL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", opts.URL, "error", err)
	}

	return &Tab{
		Page:    page,
		PageURL: opts.URL,
		PageID:  opts.ID,
		Width:   opts.Width,
		Height:  opts.Height,
	}, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
