// Package sheets mirrors expense records into a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/writer/buffered"
)

// Scope is the OAuth scope the mirror needs.
const Scope = sheets.SpreadsheetsScope

// DefaultRateLimitDelay is the wait after a 429 before retrying an append.
const DefaultRateLimitDelay = 60 * time.Second

var header = []any{"Date", "Description", "Amount", "Category", "Owner"}

// Config holds configuration for the Sheets mirror.
type Config struct {
	// SheetTitle names a new spreadsheet when SheetID is empty or unreadable.
	SheetTitle string
	// SheetID is an existing spreadsheet to append to.
	SheetID string
	// SheetName is the tab inside the spreadsheet.
	SheetName string

	// RateLimitDelay defaults to DefaultRateLimitDelay.
	RateLimitDelay time.Duration

	buffered.Config
}

// Writer appends batches of records as spreadsheet rows.
type Writer struct {
	client        *sheets.Service
	spreadsheetID string
	sheetName     string
	retryDelay    time.Duration
	logger        *slog.Logger
	buffered      *buffered.Writer
}

// New opens or creates the spreadsheet.
func New(ctx context.Context, httpClient *http.Client, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sheets_mirror")
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = DefaultRateLimitDelay
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	client, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	w := &Writer{
		client:     client,
		sheetName:  cfg.SheetName,
		retryDelay: cfg.RateLimitDelay,
		logger:     logger,
	}
	if w.spreadsheetID, err = w.open(ctx, cfg); err != nil {
		return nil, fmt.Errorf("initializing spreadsheet: %w", err)
	}
	w.buffered = buffered.New(w.flush, cfg.Config, logger)

	logger.Info("sheets mirror initialized", "spreadsheet_id", w.spreadsheetID, "sheet", cfg.SheetName)
	return w, nil
}

func (w *Writer) open(ctx context.Context, cfg Config) (string, error) {
	if cfg.SheetID != "" {
		ss, err := w.client.Spreadsheets.Get(cfg.SheetID).Context(ctx).Do()
		if err == nil {
			w.logger.Info("using existing spreadsheet", "title", ss.Properties.Title, "id", cfg.SheetID)
			return ss.SpreadsheetId, nil
		}
		w.logger.Warn("failed to get spreadsheet, will create new one", "id", cfg.SheetID, "error", err)
	}

	ss, err := w.client.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: cfg.SheetTitle},
		Sheets:     []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: cfg.SheetName}}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}
	w.logger.Info("created new spreadsheet", "title", cfg.SheetTitle, "id", ss.SpreadsheetId)

	_, err = w.client.Spreadsheets.Values.Update(ss.SpreadsheetId, w.sheetName+"!A1:E1", &sheets.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("writing headers: %w", err)
	}
	return ss.SpreadsheetId, nil
}

// Write implements api.Mirror.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense) error {
	return w.buffered.Write(ctx, in)
}

// Values renders records as sheet rows.
func Values(records []*api.Expense) [][]any {
	values := make([][]any, 0, len(records))
	for _, e := range records {
		values = append(values, []any{e.Date.String(), e.Description, e.Amount.StringFixed(2), string(e.Category), e.OwnerID})
	}
	return values
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

// flush appends one batch in a single call, waiting out rate limits.
// It runs after the request that produced the records has finished, so it
// uses its own context.
func (w *Writer) flush(records []*api.Expense) error {
	req := &sheets.ValueRange{Values: Values(records)}
	ctx := context.Background()

	err := retry.Do(
		func() error {
			_, err := w.client.Spreadsheets.Values.Append(w.spreadsheetID, w.sheetName+"!A2:E2", req).
				ValueInputOption("USER_ENTERED").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			if isRateLimited(err) {
				w.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(3),
		retry.Delay(w.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("appending batch to sheet: %w", err)
	}
	w.logger.Info("wrote record batch", "count", len(records))
	return nil
}

// SpreadsheetID returns the spreadsheet being written to.
func (w *Writer) SpreadsheetID() string {
	return w.spreadsheetID
}
