// Package receipt recovers purchased line items and the transaction date
// from raw OCR text.
//
// Extraction is a chain of short-circuiting rules (see DefaultRules). A line
// becomes an item only if it survives every rule and has the item shape
// "<name> [separator] [currency] <price>" with the price as the last token.
package receipt

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// UnknownDate is reported when no date could be found on a receipt.
const UnknownDate = "Unknown"

// Categorizer maps an item name to a category.
type Categorizer interface {
	Categorize(text string) api.Category
}

// Result is the outcome of one extraction.
type Result struct {
	Items []api.LineItem
	// Date is the first date-shaped string found, or UnknownDate.
	Date    string
	HasDate bool
}

// itemShape requires a separator before the price: whitespace, dot leaders
// or a currency symbol. The price therefore starts a token and a longer
// trailing digit run never splits into name and price.
var itemShape = regexp.MustCompile(`^(.+?)(?:[\s.]*[$₹]\s*|[\s.]*\s[\s.]*|\.{2,})(\d{1,5}(?:\.\d{2})?)\s*$`)

// datePatterns are tried in order on each line.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
	regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
}

// Extractor parses receipt text. It is safe for concurrent use.
type Extractor struct {
	categorizer Categorizer
	pre         []Rule
	post        []Rule
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(e *Extractor) {
		e.pre, e.post = splitRules(rules)
	}
}

// NewExtractor returns an Extractor using DefaultRules.
func NewExtractor(c Categorizer, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		categorizer: c,
		logger:      logger.With("component", "receipt"),
	}
	e.pre, e.post = splitRules(DefaultRules())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func splitRules(rules []Rule) (pre, post []Rule) {
	for _, r := range rules {
		if r.Stage == PreMatch {
			pre = append(pre, r)
		} else {
			post = append(post, r)
		}
	}
	return pre, post
}

// Extract returns the items of text in line order together with the
// receipt date. No items is a normal outcome.
func (e *Extractor) Extract(text string) Result {
	lines := strings.Split(text, "\n")

	res := Result{Date: UnknownDate}
	if d, ok := findDate(lines); ok {
		res.Date, res.HasDate = d, true
	}

	for _, raw := range lines {
		item, ok := e.parseLine(raw)
		if !ok {
			continue
		}
		item.Category = e.categorizer.Categorize(item.Name)
		res.Items = append(res.Items, item)
	}
	return res
}

func (e *Extractor) parseLine(raw string) (api.LineItem, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return api.LineItem{}, false
	}

	c := Candidate{Line: line}
	for _, r := range e.pre {
		if r.Discard(c) {
			e.logger.Debug("line skipped", "rule", r.Name, "line", line)
			return api.LineItem{}, false
		}
	}

	m := itemShape.FindStringSubmatch(line)
	if m == nil {
		e.logger.Debug("line skipped", "rule", unparsed, "line", line)
		return api.LineItem{}, false
	}
	price, err := decimal.NewFromString(m[2])
	if err != nil {
		e.logger.Debug("line skipped", "rule", unparsed, "line", line)
		return api.LineItem{}, false
	}
	c.Name = strings.TrimSpace(m[1])
	c.Price = price

	for _, r := range e.post {
		if r.Discard(c) {
			e.logger.Debug("line skipped", "rule", r.Name, "line", line, "name", c.Name, "price", c.Price)
			return api.LineItem{}, false
		}
	}

	return api.LineItem{RawLine: raw, Name: c.Name, Price: c.Price}, true
}

func findDate(lines []string) (string, bool) {
	for _, line := range lines {
		for _, p := range datePatterns {
			if m := p.FindString(line); m != "" {
				return m, true
			}
		}
	}
	return "", false
}

// dateLayouts are tried when turning a detected date into a calendar date.
// Slash dates are read month first.
var dateLayouts = []string{
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
	"01-02-2006",
	"2006-01-02",
}

// ParseDate converts a detected receipt date into a calendar date.
// It reports false for UnknownDate and for shapes that are not real dates,
// such as 99/99/2024.
func ParseDate(s string) (api.Date, bool) {
	if s == "" || s == UnknownDate {
		return api.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return api.DateOf(t), true
		}
	}
	return api.Date{}, false
}
