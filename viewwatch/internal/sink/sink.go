// Package sink defines output backends for viewwatch scan reports.
package sink

import (
	"context"

	"github.com/hazyhaar/viewmark/markrec"
)

// Sink delivers scan reports and marked-DOM snapshots.
type Sink interface {
	SendScan(ctx context.Context, scan markrec.Scan) error
	SendSnapshot(ctx context.Context, snap markrec.Snapshot) error
	Close() error
}
