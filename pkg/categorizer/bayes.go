package categorizer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jbrukh/bayesian"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// Bayes is a TF-IDF weighted Naive Bayes classifier loaded from a trained
// model file.
type Bayes struct {
	// LogScores updates internal counters, so calls are serialized.
	mu sync.Mutex
	cl *bayesian.Classifier
}

// LoadBayes reads a model written by SaveBayes.
func LoadBayes(path string) (*Bayes, error) {
	cl, err := bayesian.NewClassifierFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading classifier %s: %w", path, err)
	}
	return NewBayes(cl)
}

// NewBayesFromReader reads a model from r.
func NewBayesFromReader(r io.Reader) (*Bayes, error) {
	cl, err := bayesian.NewClassifierFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("decoding classifier: %w", err)
	}
	return NewBayes(cl)
}

// NewBayes wraps an already trained classifier.
func NewBayes(cl *bayesian.Classifier) (*Bayes, error) {
	if cl == nil || len(cl.Classes) < 2 {
		return nil, errors.New("classifier must have at least two classes")
	}
	if cl.IsTfIdf() && !cl.DidConvertTfIdf {
		return nil, errors.New("classifier was not converted to TF-IDF after training")
	}
	return &Bayes{cl: cl}, nil
}

// Categorize implements api.Classifier.
func (b *Bayes) Categorize(normalized string) api.Category {
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return api.CategoryOther
	}

	b.mu.Lock()
	_, inx, _ := b.cl.LogScores(tokens)
	b.mu.Unlock()

	return api.ParseCategory(string(b.cl.Classes[inx]))
}

// Classes returns the labels the model can predict.
func (b *Bayes) Classes() []api.Category {
	out := make([]api.Category, 0, len(b.cl.Classes))
	for _, c := range b.cl.Classes {
		out = append(out, api.ParseCategory(string(c)))
	}
	return out
}
