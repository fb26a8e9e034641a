package viewwatch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hazyhaar/viewmark/markrec"
	"github.com/hazyhaar/viewmark/viewwatch/internal/sink"
)

// Sink is the output interface for scan reports and snapshots.
type Sink = sink.Sink

// NewStdoutSink creates a JSON-lines sink writing to w.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewCallbackSink creates an in-process sink. Either function may be nil.
func NewCallbackSink(
	onScan func(ctx context.Context, scan markrec.Scan) error,
	onSnapshot func(ctx context.Context, snap markrec.Snapshot) error,
) Sink {
	return sink.NewCallback(onScan, onSnapshot)
}

// NewSinks builds the sinks listed in cfg. With none configured it
// returns a single stdout sink.
func NewSinks(cfgs []SinkConfig) ([]Sink, error) {
	if len(cfgs) == 0 {
		return []Sink{sink.NewStdout(os.Stdout)}, nil
	}

	var out []Sink
	for i, sc := range cfgs {
		switch sc.Type {
		case "", "stdout":
			if sc.Path == "" {
				out = append(out, sink.NewStdout(os.Stdout))
				continue
			}
			f, err := os.OpenFile(sc.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				closeSinks(out)
				return nil, fmt.Errorf("viewwatch: sink %d: %w", i, err)
			}
			out = append(out, sink.NewStdout(f))
		default:
			closeSinks(out)
			return nil, fmt.Errorf("viewwatch: sink %d: unknown type %q", i, sc.Type)
		}
	}
	return out, nil
}

func closeSinks(sinks []Sink) {
	for _, s := range sinks {
		s.Close()
	}
}
