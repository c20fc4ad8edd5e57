// Package buffered batches mirrored expense records before handing them to a
// sink.
package buffered

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// DefaultBatchSize is the number of records held before a flush.
const DefaultBatchSize = 10

// DefaultFlushInterval is the interval between automatic flushes.
const DefaultFlushInterval = 30 * time.Second

// Flusher writes one batch of records to a sink.
type Flusher func(records []*api.Expense) error

// Config holds the batching knobs.
type Config struct {
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	// FlushInterval defaults to DefaultFlushInterval.
	FlushInterval time.Duration
}

// Writer buffers records and flushes them when the batch fills, on a timer,
// and when its input ends.
type Writer struct {
	mu      sync.Mutex
	pending []*api.Expense
	flusher Flusher
	cfg     Config
	logger  *slog.Logger
}

// New creates a buffered writer around flusher.
func New(flusher Flusher, cfg Config, logger *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		pending: make([]*api.Expense, 0, cfg.BatchSize),
		flusher: flusher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Write implements api.Mirror. It returns nil once in is closed and drained,
// or context.Canceled after a final flush when ctx ends.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense) error {
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	w.logger.Info("mirror started", "batch_size", w.cfg.BatchSize, "flush_interval", w.cfg.FlushInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("mirror stopping, flushing remaining records")
			if err := w.Flush(); err != nil {
				w.logger.Error("flush on shutdown failed", "error", err)
			}
			return context.Canceled

		case <-ticker.C:
			if err := w.Flush(); err != nil {
				w.logger.Error("flush on interval failed", "error", err)
			}

		case rec, ok := <-in:
			if !ok {
				return w.Flush()
			}
			if rec == nil {
				continue
			}
			if w.add(rec) {
				if err := w.Flush(); err != nil {
					w.logger.Error("flush on full batch failed", "error", err)
				}
			}
		}
	}
}

// add buffers rec and reports whether the batch is full.
func (w *Writer) add(rec *api.Expense) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, rec)
	return len(w.pending) >= w.cfg.BatchSize
}

// Flush hands every buffered record to the flusher. A failed batch is
// dropped, since the store holds the authoritative copy.
func (w *Writer) Flush() error {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return nil
	}
	batch := make([]*api.Expense, len(w.pending))
	copy(batch, w.pending)
	w.pending = w.pending[:0]
	w.mu.Unlock()

	if err := w.flusher(batch); err != nil {
		return err
	}
	w.logger.Debug("flushed mirrored records", "count", len(batch))
	return nil
}

// Len returns the number of buffered records.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
