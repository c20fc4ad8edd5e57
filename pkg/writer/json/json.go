// Package json mirrors expense records into a JSON array file.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/writer/buffered"
)

// Config holds configuration for the JSON mirror.
type Config struct {
	FilePath string
	buffered.Config
}

// Writer rewrites the whole array on each batch.
type Writer struct {
	path     string
	mu       sync.Mutex
	records  []*api.Expense
	buffered *buffered.Writer
	logger   *slog.Logger
}

// New loads any existing array at cfg.FilePath.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "json_mirror")

	w := &Writer{path: cfg.FilePath, logger: logger}
	if err := w.load(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.FilePath, err)
	}
	w.buffered = buffered.New(w.flush, cfg.Config, logger)

	logger.Info("json mirror initialized", "file", cfg.FilePath, "existing_count", len(w.records))
	return w, nil
}

func (w *Writer) load() error {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &w.records)
}

// Write implements api.Mirror.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense) error {
	return w.buffered.Write(ctx, in)
}

func (w *Writer) flush(batch []*api.Expense) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = append(w.records, batch...)
	data, err := json.MarshalIndent(w.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	if err := os.WriteFile(w.path, data, 0o600); err != nil {
		return fmt.Errorf("writing json file: %w", err)
	}
	w.logger.Debug("wrote records to json", "batch_count", len(batch), "total_count", len(w.records))
	return nil
}

// Count returns the number of records in the file.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}
