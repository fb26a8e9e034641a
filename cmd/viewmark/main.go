// Command viewmark marks the elements of chosen tags with a CSS class
// while they are fully inside the viewport of a Chrome tab.
//
// Usage:
//
//	viewmark -config viewmark.yaml                          # mark pages from YAML config
//	viewmark -url https://example.com -tags p,img -class in-view
//	viewmark -snapshot https://example.com -tags p -class in-view
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/viewmark/marker"
	"github.com/hazyhaar/viewmark/viewwatch"
)

type options struct {
	configPath     string
	url            string
	snapshotURL    string
	tags           string
	class          string
	width, height  int
	scroll         int
	scrollInterval time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to viewmark.yaml config file")
	flag.StringVar(&o.url, "url", "", "mark a single URL (stdout sink)")
	flag.StringVar(&o.snapshotURL, "snapshot", "", "mark a single URL once, print the marked HTML and exit")
	flag.StringVar(&o.tags, "tags", "", "comma-separated tags to mark")
	flag.StringVar(&o.class, "class", "", "class written on elements in view")
	flag.IntVar(&o.width, "width", 1024, "viewport width")
	flag.IntVar(&o.height, "height", 768, "viewport height")
	flag.IntVar(&o.scroll, "scroll", 0, "auto-scroll step in pixels, 0 disables")
	flag.DurationVar(&o.scrollInterval, "scroll-interval", time.Second, "auto-scroll interval")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("viewmark: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	switch {
	case o.snapshotURL != "":
		return runSnapshot(ctx, logger, o)
	case o.url != "":
		return runSingle(ctx, logger, o)
	case o.configPath != "":
		return runConfig(ctx, logger, o.configPath)
	}

	fmt.Fprintln(os.Stderr, "usage: viewmark -config <file> | -url <url> | -snapshot <url>")
	os.Exit(2)
	return nil
}

func runSnapshot(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := flagConfig(o, o.snapshotURL)
	cfg.Pages[0].Scroll = viewwatch.ScrollConfig{}

	w := viewwatch.New(cfg, logger)
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	id := cfg.Pages[0].ID
	if _, err := w.Scan(ctx, id); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	snap, err := w.Snapshot(ctx, id)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	os.Stdout.Write(snap.HTML)
	os.Stdout.Write([]byte("\n"))
	return nil
}

func runSingle(ctx context.Context, logger *slog.Logger, o options) error {
	w := viewwatch.New(flagConfig(o, o.url), logger, viewwatch.NewStdoutSink(nil))

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	<-ctx.Done()
	w.Stop()
	return nil
}

func runConfig(ctx context.Context, logger *slog.Logger, path string) error {
	cfg, err := viewwatch.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sinks, err := viewwatch.NewSinks(cfg.Sinks)
	if err != nil {
		return err
	}

	w := viewwatch.New(cfg, logger, sinks...)

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	<-ctx.Done()
	w.Stop()
	return nil
}

func flagConfig(o options, url string) *viewwatch.Config {
	return &viewwatch.Config{
		Marker: marker.Config{
			TagsToMark:    splitTags(o.tags),
			ClassToAppend: o.class,
		},
		Viewport: viewwatch.ViewportConfig{Width: o.width, Height: o.height},
		Pages: []viewwatch.PageConfig{{
			URL: url,
			Scroll: viewwatch.ScrollConfig{
				Step:     o.scroll,
				Interval: o.scrollInterval,
			},
		}},
	}
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
