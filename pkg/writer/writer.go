// Package writer connects the service to a record mirror.
//
// The mirror is a best-effort secondary log of persisted records; the store
// remains the source of truth. Fanout decouples the request path from the
// mirror so a slow sink never delays a request.
package writer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// DefaultQueueSize is the number of records Fanout holds before dropping.
const DefaultQueueSize = 256

// Fanout queues records for a mirror without blocking the publisher.
// A nil *Fanout discards everything.
type Fanout struct {
	mu     sync.Mutex
	ch     chan *api.Expense
	closed bool
	logger *slog.Logger
}

// NewFanout creates a queue of the given size.
func NewFanout(size int, logger *slog.Logger) *Fanout {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{ch: make(chan *api.Expense, size), logger: logger.With("component", "mirror")}
}

// Publish queues copies of records. When the queue is full the record is
// logged and skipped.
func (f *Fanout) Publish(records ...api.Expense) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for i := range records {
		e := records[i]
		select {
		case f.ch <- &e:
		default:
			f.logger.Warn("mirror queue full, skipping record", "id", e.ID, "owner", e.OwnerID)
		}
	}
}

// Run feeds queued records to m until the queue is closed or ctx ends.
func (f *Fanout) Run(ctx context.Context, m api.Mirror) error {
	return m.Write(ctx, f.ch)
}

// Close stops accepting records and lets Run drain the queue.
func (f *Fanout) Close() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
