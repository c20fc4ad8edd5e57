// Package service wires the ingestion pipelines, the record store and the
// analytics views into the operations the HTTP server and CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ArionMiles/smartspend/pkg/analytics"
	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/imaging"
	"github.com/ArionMiles/smartspend/pkg/ingest"
	"github.com/ArionMiles/smartspend/pkg/insight"
	"github.com/ArionMiles/smartspend/pkg/receipt"
	"github.com/ArionMiles/smartspend/pkg/writer"
)

// ErrNoRecognizer is returned by ProcessReceipt when no OCR engine is set.
var ErrNoRecognizer = errors.New("no OCR recognizer configured")

// Categorizer assigns a category to free text.
type Categorizer interface {
	Categorize(text string) api.Category
}

// Advisor turns insight phrases into advice.
type Advisor interface {
	Tips(ctx context.Context, phrases []string) (string, error)
}

// Service implements the smartspend operations for one store.
type Service struct {
	store       api.Store
	categorizer Categorizer
	recognizer  api.Recognizer
	extractor   *receipt.Extractor
	engine      *analytics.Engine
	summarizer  *insight.Summarizer
	advisor     Advisor
	mirror      *writer.Fanout
	whitelist   string
	loc         *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecognizer sets the OCR engine used for receipts.
func WithRecognizer(r api.Recognizer) Option { return func(s *Service) { s.recognizer = r } }

// WithWhitelist sets the characters OCR may return.
func WithWhitelist(wl string) Option { return func(s *Service) { s.whitelist = wl } }

// WithAdvisor enables savings tips.
func WithAdvisor(a Advisor) Option { return func(s *Service) { s.advisor = a } }

// WithMirror publishes every inserted record to f.
func WithMirror(f *writer.Fanout) Option { return func(s *Service) { s.mirror = f } }

// WithLocation sets the zone used to turn timestamps into calendar dates.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithExtractorOptions customizes receipt line extraction.
func WithExtractorOptions(opts ...receipt.Option) Option {
	return func(s *Service) { s.extractor = receipt.NewExtractor(s.categorizer, s.logger, opts...) }
}

// WithSummarizer replaces the insight rules.
func WithSummarizer(z *insight.Summarizer) Option { return func(s *Service) { s.summarizer = z } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New creates a Service.
func New(store api.Store, c Categorizer, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:       store,
		categorizer: c,
		engine:      analytics.NewEngine(store),
		summarizer:  insight.New(nil),
		loc:         time.UTC,
		now:         time.Now,
		logger:      logger.With("component", "service"),
	}
	s.extractor = receipt.NewExtractor(c, s.logger)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the zone calendar dates are taken in.
func (s *Service) Location() *time.Location { return s.loc }

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return api.ErrMissingOwner
	}
	return nil
}

// persist writes records in one call and mirrors them on success.
func (s *Service) persist(ctx context.Context, records []api.Expense) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	created := s.now().UTC()
	for i := range records {
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = created
		}
	}
	ids, err := s.store.InsertMany(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("storing records: %w", err)
	}
	for i := range records {
		records[i].ID = ids[i]
	}
	s.mirror.Publish(records...)
	return ids, nil
}

// ReceiptResult is the outcome of one receipt upload.
type ReceiptResult struct {
	// Date is the date text found on the receipt, or receipt.UnknownDate.
	Date    string         `json:"date"`
	Items   []api.LineItem `json:"items"`
	Records []api.Expense  `json:"-"`
}

// ProcessReceipt decodes a receipt image, reads its text and stores one
// record per recovered line item. Nothing is stored when decoding or
// recognition fails. A receipt with no recognizable items is not an error.
func (s *Service) ProcessReceipt(ctx context.Context, owner string, r io.Reader) (ReceiptResult, error) {
	if err := requireOwner(owner); err != nil {
		return ReceiptResult{}, err
	}
	if s.recognizer == nil {
		return ReceiptResult{}, ErrNoRecognizer
	}

	img, format, err := imaging.Decode(r)
	if err != nil {
		return ReceiptResult{}, err
	}
	text, err := s.recognizer.Recognize(ctx, imaging.Normalize(img), s.whitelist)
	if err != nil {
		return ReceiptResult{}, fmt.Errorf("recognizing receipt text: %w", err)
	}

	res := s.extractor.Extract(text)
	out := ReceiptResult{Date: receipt.UnknownDate, Items: res.Items}
	if out.Items == nil {
		out.Items = []api.LineItem{}
	}

	var date api.Date
	if res.HasDate {
		out.Date = res.Date
		date, _ = receipt.ParseDate(res.Date)
	}

	records := make([]api.Expense, 0, len(res.Items))
	for _, it := range res.Items {
		records = append(records, api.Expense{
			OwnerID:     owner,
			Date:        date,
			Description: it.Name,
			Amount:      it.Price,
			Category:    it.Category,
		})
	}
	if _, err := s.persist(ctx, records); err != nil {
		return ReceiptResult{}, err
	}
	out.Records = records

	s.logger.Info("processed receipt", "owner", owner, "format", format, "items", len(records), "date", out.Date)
	return out, nil
}

// ImportResult is the outcome of one spreadsheet upload.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Dropped  int `json:"dropped"`
}

// ImportSpreadsheet stores the rows of a CSV or Excel upload. Malformed rows
// are dropped and counted.
func (s *Service) ImportSpreadsheet(ctx context.Context, owner, filename string, r io.Reader) (ImportResult, error) {
	if err := requireOwner(owner); err != nil {
		return ImportResult{}, err
	}
	rows, err := ingest.Parse(filename, r)
	if err != nil {
		return ImportResult{}, err
	}
	records, dropped := ingest.Coerce(rows, owner, s.categorizer, s.loc)
	if _, err := s.persist(ctx, records); err != nil {
		return ImportResult{}, err
	}

	s.logger.Info("imported spreadsheet", "owner", owner, "file", filename, "inserted", len(records), "dropped", dropped)
	return ImportResult{Inserted: len(records), Dropped: dropped}, nil
}

// AddExpense stores one record. A blank category is filled in from the
// description.
func (s *Service) AddExpense(ctx context.Context, e api.Expense) (api.Expense, error) {
	if err := requireOwner(e.OwnerID); err != nil {
		return api.Expense{}, err
	}
	e.ID = ""
	e.Description = strings.TrimSpace(e.Description)
	if e.Category == "" {
		e.Category = s.categorizer.Categorize(e.Description)
	}
	if err := e.Validate(); err != nil {
		return api.Expense{}, err
	}

	records := []api.Expense{e}
	if _, err := s.persist(ctx, records); err != nil {
		return api.Expense{}, err
	}
	return records[0], nil
}

// ListExpenses returns the records of owner, optionally bounded by date.
func (s *Service) ListExpenses(ctx context.Context, owner string, from, to *time.Time) ([]api.Expense, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return s.store.Find(ctx, api.Filter{OwnerID: owner, From: from, To: to})
}

// UpdateExpense applies patch to a record of owner. A record that does not
// exist or belongs to someone else yields api.ErrNotFound.
func (s *Service) UpdateExpense(ctx context.Context, id, owner string, patch api.ExpensePatch) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	n, err := s.store.Update(ctx, id, owner, patch)
	if err != nil {
		return err
	}
	if n == 0 {
		return api.ErrNotFound
	}
	return nil
}

// DeleteExpense removes a record of owner. A record that does not exist or
// belongs to someone else yields api.ErrNotFound.
func (s *Service) DeleteExpense(ctx context.Context, id, owner string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	n, err := s.store.Delete(ctx, id, owner)
	if err != nil {
		return err
	}
	if n == 0 {
		return api.ErrNotFound
	}
	return nil
}
