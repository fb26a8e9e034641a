package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/viewmark/markrec"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{w: w, enc: json.NewEncoder(w)}
}

func (s *Stdout) SendScan(_ context.Context, scan markrec.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "scan", Data: scan})
}

func (s *Stdout) SendSnapshot(_ context.Context, snap markrec.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "snapshot", Data: snap})
}

// Close closes the writer when it is a closer other than os.Stdout.
func (s *Stdout) Close() error {
	if c, ok := s.w.(io.Closer); ok && s.w != os.Stdout {
		return c.Close()
	}
	return nil
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
