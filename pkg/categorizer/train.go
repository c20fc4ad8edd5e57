package categorizer

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jbrukh/bayesian"

	"github.com/ArionMiles/smartspend/pkg/api"
)

//go:embed corpus.csv
var corpusCSV []byte

// Example is one labeled training phrase.
type Example struct {
	Text     string
	Category api.Category
}

// DefaultExamples returns the built-in labeled corpus.
func DefaultExamples() ([]Example, error) {
	return ReadExamples(bytes.NewReader(corpusCSV))
}

// ReadExamples parses "text,category" rows. A header row is skipped.
func ReadExamples(r io.Reader) ([]Example, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var out []Example
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading examples: %w", err)
		}
		if line == 1 && strings.EqualFold(rec[0], "text") {
			continue
		}
		cat := api.ParseCategory(rec[1])
		if cat == api.CategoryOther && !strings.EqualFold(strings.TrimSpace(rec[1]), string(api.CategoryOther)) {
			return nil, fmt.Errorf("line %d: unknown category %q", line, rec[1])
		}
		out = append(out, Example{Text: rec[0], Category: cat})
	}
	return out, nil
}

// Train builds a TF-IDF Naive Bayes classifier from examples. Classes are
// ordered as api.Categories lists them.
func Train(examples []Example) (*bayesian.Classifier, error) {
	seen := make(map[api.Category]bool)
	for _, ex := range examples {
		seen[ex.Category] = true
	}

	var classes []bayesian.Class
	for _, c := range api.Categories() {
		if seen[c] {
			classes = append(classes, bayesian.Class(c))
		}
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("need examples for at least two categories, got %d", len(classes))
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, ex := range examples {
		tokens := strings.Fields(Normalize(ex.Text))
		if len(tokens) == 0 {
			continue
		}
		cl.Learn(tokens, bayesian.Class(ex.Category))
	}
	cl.ConvertTermsFreqToTfIdf()
	return cl, nil
}

// SaveBayes writes cl to path, creating parent directories.
func SaveBayes(cl *bayesian.Classifier, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating model directory: %w", err)
		}
	}
	if err := cl.WriteToFile(path); err != nil {
		return fmt.Errorf("writing classifier: %w", err)
	}
	return nil
}

// TrainDefault trains on DefaultExamples.
func TrainDefault() (*Bayes, error) {
	examples, err := DefaultExamples()
	if err != nil {
		return nil, err
	}
	cl, err := Train(examples)
	if err != nil {
		return nil, err
	}
	return NewBayes(cl)
}
