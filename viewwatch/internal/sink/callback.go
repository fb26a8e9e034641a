package sink

import (
	"context"

	"github.com/hazyhaar/viewmark/markrec"
)

// ScanFunc is called for each scan report.
type ScanFunc func(ctx context.Context, scan markrec.Scan) error

// SnapshotFunc is called for each snapshot.
type SnapshotFunc func(ctx context.Context, snap markrec.Snapshot) error

// Callback delivers reports to in-process Go functions, without
// serialisation.
type Callback struct {
	onScan     ScanFunc
	onSnapshot SnapshotFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onScan ScanFunc, onSnapshot SnapshotFunc) *Callback {
	return &Callback{onScan: onScan, onSnapshot: onSnapshot}
}

func (c *Callback) SendScan(ctx context.Context, scan markrec.Scan) error {
	if c.onScan != nil {
		return c.onScan(ctx, scan)
	}
	return nil
}

func (c *Callback) SendSnapshot(ctx context.Context, snap markrec.Snapshot) error {
	if c.onSnapshot != nil {
		return c.onSnapshot(ctx, snap)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
