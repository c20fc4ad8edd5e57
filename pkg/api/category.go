package api

import "strings"

// Category is one of the fixed expense categories.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryGroceries     Category = "Groceries"
	CategoryTransport     Category = "Transport"
	CategoryRent          Category = "Rent"
	CategoryEntertainment Category = "Entertainment"
	CategoryUtilities     Category = "Utilities"
	CategoryClothing      Category = "Clothing"
	CategoryElectronics   Category = "Electronics"
	CategoryPersonalCare  Category = "Personal Care"
	CategoryOther         Category = "Other"
)

var allCategories = []Category{
	CategoryFood,
	CategoryGroceries,
	CategoryTransport,
	CategoryRent,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryClothing,
	CategoryElectronics,
	CategoryPersonalCare,
	CategoryOther,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory matches s case-insensitively against the known categories.
// Unknown or empty labels map to CategoryOther.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range allCategories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return CategoryOther
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
