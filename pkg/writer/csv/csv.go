// Package csv mirrors expense records into an append-only CSV log.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/writer/buffered"
)

// Header is the first row of a new log file.
var Header = []string{"date", "description", "amount", "category", "owner_id"}

// Row renders a record as a log row. Unknown dates are written empty.
func Row(e *api.Expense) []string {
	return []string{e.Date.String(), e.Description, e.Amount.StringFixed(2), string(e.Category), e.OwnerID}
}

// Config holds configuration for the CSV mirror.
type Config struct {
	// FilePath is the log file. Missing parent directories are created.
	FilePath string
	buffered.Config
}

// Writer appends mirrored records to a CSV file in batches.
type Writer struct {
	path     string
	mu       sync.Mutex
	file     *os.File
	w        *csv.Writer
	buffered *buffered.Writer
	logger   *slog.Logger
}

// New opens (or creates) the log file.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "csv_mirror")

	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}

	w := &Writer{path: cfg.FilePath, file: file, w: csv.NewWriter(file), logger: logger}

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat csv file: %w", err), file.Close())
	}
	if stat.Size() == 0 {
		if err := w.writeRows([][]string{Header}); err != nil {
			return nil, errors.Join(fmt.Errorf("writing header: %w", err), file.Close())
		}
	}

	w.buffered = buffered.New(w.flush, cfg.Config, logger)
	logger.Info("csv mirror initialized", "file", cfg.FilePath)
	return w, nil
}

// Write implements api.Mirror. The file is closed when Write returns.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense) error {
	defer w.Close()
	return w.buffered.Write(ctx, in)
}

func (w *Writer) flush(records []*api.Expense) error {
	rows := make([][]string, len(records))
	for i, e := range records {
		rows[i] = Row(e)
	}
	return w.writeRows(rows)
}

func (w *Writer) writeRows(rows [][]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range rows {
		if err := w.w.Write(r); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	w.w.Flush()
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("closing csv file: %w", err)
	}
	w.logger.Info("csv mirror closed", "file", w.path)
	return nil
}

// ReadLog parses a mirror log back into records. The header row is
// optional. Rows with an unreadable date or amount are skipped and counted;
// rows without a date are kept undated.
func ReadLog(r io.Reader) ([]api.Expense, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		out     []api.Expense
		skipped int
	)
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading log: %w", err)
		}
		if line == 0 && len(rec) > 0 && strings.EqualFold(rec[0], Header[0]) {
			continue
		}
		if len(rec) < 4 {
			skipped++
			continue
		}

		var e api.Expense
		if s := strings.TrimSpace(rec[0]); s != "" && s != "Unknown" {
			if e.Date, err = api.ParseDate(s); err != nil {
				skipped++
				continue
			}
		}
		if e.Amount, err = decimal.NewFromString(strings.TrimSpace(rec[2])); err != nil {
			skipped++
			continue
		}
		e.Description = rec[1]
		e.Category = api.ParseCategory(rec[3])
		if len(rec) > 4 {
			e.OwnerID = strings.TrimSpace(rec[4])
		}
		out = append(out, e)
	}
	return out, skipped, nil
}
