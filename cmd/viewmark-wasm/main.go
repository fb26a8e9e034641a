//go:build js && wasm

// Command viewmark-wasm exposes the visibility marker to page scripts:
//
//	const m = marker.init({tagsToMark: ["p", "img"], classToAppend: "in-view"});
//	m.scan();  // force a re-scan, returns the number of marked elements
//	m.close(); // stop listening
//
// Missing fields default to no tags and an empty class.
package main

import (
	"context"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/hazyhaar/viewmark/jsdom"
	"github.com/hazyhaar/viewmark/marker"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	js.Global().Set("marker", newAPI(context.Background(), jsdom.New(), logger))

	select {}
}

// newAPI builds the object exposed to page scripts.
func newAPI(ctx context.Context, host marker.Host, logger *slog.Logger) js.Value {
	api := js.Global().Get("Object").New()
	api.Set("init", js.FuncOf(func(_ js.Value, args []js.Value) any {
		var cfg marker.Config
		if len(args) > 0 {
			cfg = parseConfig(args[0])
		}

		m, err := marker.Initialize(ctx, host, cfg, marker.WithLogger(logger))
		if err != nil {
			logger.Error("viewmark: init failed", "error", err)
			return js.Null()
		}
		return handle(ctx, m)
	}))
	return api
}

// parseConfig reads {tagsToMark, classToAppend} from a JS object. Fields
// of the wrong type are ignored, leaving an empty tag list or class.
func parseConfig(v js.Value) marker.Config {
	var cfg marker.Config
	if v.Type() != js.TypeObject {
		return cfg
	}
	if tags := v.Get("tagsToMark"); isArray(tags) {
		n := tags.Get("length").Int()
		for i := 0; i < n; i++ {
			if t := tags.Index(i); t.Type() == js.TypeString {
				cfg.TagsToMark = append(cfg.TagsToMark, t.String())
			}
		}
	}
	if c := v.Get("classToAppend"); c.Type() == js.TypeString {
		cfg.ClassToAppend = c.String()
	}
	return cfg
}

func isArray(v js.Value) bool {
	return v.Type() == js.TypeObject &&
		js.Global().Get("Array").Call("isArray", v).Bool()
}

func handle(ctx context.Context, m *marker.Marker) js.Value {
	h := js.Global().Get("Object").New()
	h.Set("scan", js.FuncOf(func(js.Value, []js.Value) any {
		scan, err := m.Scan(ctx)
		if err != nil {
			slog.Warn("viewmark: scan incomplete", "error", err)
		}
		return scan.Marked
	}))
	h.Set("close", js.FuncOf(func(js.Value, []js.Value) any {
		m.Close()
		return nil
	}))
	return h
}
