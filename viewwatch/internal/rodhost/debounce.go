package rodhost

import "time"

// debounceConfig controls event coalescing.
type debounceConfig struct {
	// Window is the debounce time. Zero disables coalescing.
	Window time.Duration
	// MaxBuffer flushes immediately when this many events are pending. Default: 1000.
	MaxBuffer int
}

func (dc *debounceConfig) defaults() {
	if dc.MaxBuffer <= 0 {
		dc.MaxBuffer = 1000
	}
}

// debouncer collects event keys and hands them to flushFn, coalesced,
// when the window expires or the buffer fills.
type debouncer struct {
	cfg     debounceConfig
	pending []string
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func([]string)
}

func newDebouncer(cfg debounceConfig, flushFn func([]string)) *debouncer {
	cfg.defaults()
	return &debouncer{
		cfg:     cfg,
		flushFn: flushFn,
	}
}

// add queues an event key. Returns true if it was flushed immediately
// (coalescing disabled or buffer full).
func (d *debouncer) add(key string) bool {
	if d.cfg.Window <= 0 {
		d.flushFn([]string{key})
		return true
	}

	d.pending = append(d.pending, key)

	if len(d.pending) >= d.cfg.MaxBuffer {
		d.flush()
		return true
	}

	// Trailing edge: restart the window on every event.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.cfg.Window)
	d.timerCh = d.timer.C
	return false
}

// timerC returns the channel that fires when the window expires. It is
// nil while nothing is pending.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// flush coalesces and emits the pending keys, then resets.
func (d *debouncer) flush() {
	if len(d.pending) == 0 {
		return
	}

	d.flushFn(coalesce(d.pending))

	d.pending = d.pending[:0]
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
}

// coalesce keeps the first occurrence of each key. A scan reads the
// whole live document, so repeats of one event add nothing.
func coalesce(keys []string) []string {
	if len(keys) <= 1 {
		return keys
	}

	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
