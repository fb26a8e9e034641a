package rodhost

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/viewmark/marker"
	"github.com/hazyhaar/viewmark/markrec"
)

const fixture = `<!DOCTYPE html>
<html><head><style>
body { margin: 0; }
div { height: 100px; margin: 0; }
</style></head>
<body>
<div id="top" class="old">top</div>
<div id="filler" style="height: 1000px">filler</div>
<div id="below">below</div>
<p id="p" class="untouched">p</p>
</body></html>`

// TestMarkerInChrome drives a real headless Chrome. It runs only when
// VIEWMARK_CHROME is set and a browser binary is installed.
func TestMarkerInChrome(t *testing.T) {
	if os.Getenv("VIEWMARK_CHROME") == "" {
		t.Skip("VIEWMARK_CHROME not set")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome binary found")
	}

	u, err := launcher.New().Bin(bin).Headless(true).Launch()
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer b.Close()

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		t.Fatal(err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 800, Height: 600, DeviceScaleFactor: 1,
	}); err != nil {
		t.Fatal(err)
	}
	if err := page.SetDocumentContent(fixture); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	host := New(Config{Page: page})
	if err := host.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer host.Close()

	scans := make(chan markrec.Scan, 16)
	m, err := marker.Initialize(ctx, host,
		marker.Config{TagsToMark: []string{"div"}, ClassToAppend: "in-view"},
		marker.WithReporter(func(_ context.Context, s markrec.Scan) { scans <- s }))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	<-scans

	class := func(id string) *string {
		t.Helper()
		v, err := page.MustElement("#" + id).Attribute("class")
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	if c := class("top"); c == nil || *c != "in-view" {
		t.Errorf("#top: got %v, want in-view", c)
	}
	if c := class("below"); c != nil {
		t.Errorf("#below: got %q, want no class", *c)
	}

	moved, err := host.ScrollBy(ctx, 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !moved {
		t.Fatal("page did not scroll")
	}
	select {
	case s := <-scans:
		if s.Trigger != markrec.TriggerScroll {
			t.Errorf("trigger: got %s, want scroll", s.Trigger)
		}
	case <-ctx.Done():
		t.Fatal("no scan after scroll")
	}

	if c := class("below"); c == nil || *c != "in-view" {
		t.Errorf("#below after scroll: got %v, want in-view", c)
	}
	if c := class("top"); c != nil {
		t.Errorf("#top after scroll: got %q, want no class", *c)
	}
	if c := class("p"); c == nil || *c != "untouched" {
		t.Errorf("#p: got %v, want untouched", c)
	}

	els, err := host.ElementsByTagName(ctx, "div")
	if err != nil {
		t.Fatal(err)
	}
	host.Release(ctx, els)
	if _, err := els[0].Rect(ctx); err == nil {
		t.Error("Rect on a released element succeeded")
	}

	// Navigation drops page-side listeners; the host re-installs them.
	if err := page.Navigate("data:text/html;charset=utf-8," + url.PathEscape(fixture)); err != nil {
		t.Fatal(err)
	}
	page.MustWaitLoad()
	time.Sleep(200 * time.Millisecond)
	for len(scans) > 0 {
		<-scans
	}
	if _, err := host.ScrollBy(ctx, 0, 1000); err != nil {
		t.Fatal(err)
	}
	select {
	case <-scans:
	case <-ctx.Done():
		t.Fatal("no scan after scroll following reload")
	}
}
