package receipt

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Stage says when a rule runs relative to the item shape match.
type Stage int

const (
	// PreMatch rules see only the trimmed line.
	PreMatch Stage = iota
	// PostMatch rules also see the parsed name and price.
	PostMatch
)

func (s Stage) String() string {
	if s == PreMatch {
		return "pre-match"
	}
	return "post-match"
}

// Candidate is a receipt line under evaluation. Name and Price are only set
// for PostMatch rules.
type Candidate struct {
	Line  string
	Name  string
	Price decimal.Decimal
}

// Rule discards a line when Discard returns true.
type Rule struct {
	Name    string
	Stage   Stage
	Discard func(c Candidate) bool
}

// Rule names.
const (
	RuleTooShort        = "too-short"
	RuleExcludedKeyword = "excluded-keyword"
	RulePhoneLike       = "phone-like"
	RuleNumericName     = "numeric-name"
	RuleShortName       = "short-name"
	RulePriceCeiling    = "price-ceiling"

	// unparsed is logged for lines that do not have the item shape.
	unparsed = "unparsed"
)

const minLineLength = 4

// ExcludedKeywords are structural receipt fields that never name a purchase.
var ExcludedKeywords = []string{
	"suite", "palo alto", "terminal", "order id", "order number",
	"merchant", "approval code", "transaction id", "grand total",
	"subtotal", "tip", "signature", "card type", "visa", "mastercard", "amex",
	"response", "amount", "entry mode", "number", "local business", "total", "total usd",
}

// PriceCeiling is the largest believable price for an item not in ExpensiveItems.
var PriceCeiling = decimal.NewFromInt(100000)

// ExpensiveItems may exceed PriceCeiling.
var ExpensiveItems = []string{"rent", "flight", "insurance"}

var phoneLike = regexp.MustCompile(`\d{2,}-\d{2,}`)

// DefaultRules returns the line filters in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleTooShort, Stage: PreMatch, Discard: tooShort},
		{Name: RuleExcludedKeyword, Stage: PreMatch, Discard: KeywordRule(ExcludedKeywords)},
		{Name: RulePhoneLike, Stage: PostMatch, Discard: func(c Candidate) bool { return phoneLike.MatchString(c.Line) }},
		{Name: RuleNumericName, Stage: PostMatch, Discard: numericName},
		{Name: RuleShortName, Stage: PostMatch, Discard: func(c Candidate) bool { return utf8.RuneCountInString(c.Name) < 2 }},
		{Name: RulePriceCeiling, Stage: PostMatch, Discard: priceCeiling},
	}
}

// KeywordRule discards lines containing any of keywords, case-insensitively.
func KeywordRule(keywords []string) func(Candidate) bool {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return func(c Candidate) bool {
		line := strings.ToLower(c.Line)
		for _, k := range lowered {
			if strings.Contains(line, k) {
				return true
			}
		}
		return false
	}
}

func tooShort(c Candidate) bool {
	return utf8.RuneCountInString(c.Line) < minLineLength
}

func numericName(c Candidate) bool {
	s := strings.ReplaceAll(c.Name, " ", "")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func priceCeiling(c Candidate) bool {
	if !c.Price.GreaterThan(PriceCeiling) {
		return false
	}
	return !slices.Contains(ExpensiveItems, strings.ToLower(c.Name))
}
