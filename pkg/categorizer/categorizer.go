// Package categorizer maps free text such as item names and transaction
// descriptions to an expense category.
package categorizer

import (
	"strings"
	"unicode"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// MaxTokens is the longest text that is handed to the classifier.
// Longer phrases are almost always OCR noise or multi-clause descriptions.
const MaxTokens = 4

// Normalize lower-cases text and removes every character that is not an
// ASCII letter or whitespace.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
}

// Categorizer guards a Classifier against empty and overly long input.
type Categorizer struct {
	classifier api.Classifier
}

// New wraps classifier.
func New(classifier api.Classifier) *Categorizer {
	return &Categorizer{classifier: classifier}
}

// Categorize returns the category of text. Empty text and text with more
// than MaxTokens words are Other.
func (c *Categorizer) Categorize(text string) api.Category {
	norm := Normalize(text)
	tokens := strings.Fields(norm)
	if len(tokens) == 0 || len(tokens) > MaxTokens {
		return api.CategoryOther
	}

	cat := c.classifier.Categorize(strings.Join(tokens, " "))
	if !cat.Valid() {
		return api.CategoryOther
	}
	return cat
}
