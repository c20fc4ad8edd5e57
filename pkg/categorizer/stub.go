package categorizer

import (
	"strings"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// Stub is a deterministic classifier that looks each token up in a keyword
// table. The first token with an entry wins; otherwise it returns Other.
type Stub map[string]api.Category

// DefaultStub knows a handful of common receipt words.
func DefaultStub() Stub {
	return Stub{
		"pizza":   api.CategoryFood,
		"burger":  api.CategoryFood,
		"coffee":  api.CategoryFood,
		"milk":    api.CategoryGroceries,
		"rice":    api.CategoryGroceries,
		"uber":    api.CategoryTransport,
		"rent":    api.CategoryRent,
		"netflix": api.CategoryEntertainment,
		"broom":   api.CategoryUtilities,
		"shirt":   api.CategoryClothing,
		"laptop":  api.CategoryElectronics,
		"shampoo": api.CategoryPersonalCare,
	}
}

// Categorize implements api.Classifier.
func (s Stub) Categorize(normalized string) api.Category {
	for _, tok := range strings.Fields(normalized) {
		if c, ok := s[tok]; ok {
			return c
		}
	}
	return api.CategoryOther
}
