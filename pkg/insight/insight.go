// Package insight reduces an analytics snapshot to a few short phrases.
package insight

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/analytics"
)

// MaxPhrases caps the summary length.
const MaxPhrases = 3

// spikeFactor is how far one figure must exceed another to be called out.
var spikeFactor = decimal.RequireFromString("1.3")

// Rule turns a snapshot into zero or more phrases.
type Rule struct {
	Name    string
	Phrases func(s analytics.Snapshot) []string
}

// DefaultRules returns the rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "biggest-category", Phrases: biggestCategory},
		{Name: "week-split", Phrases: weekSplit},
		{Name: "overspending", Phrases: overspending},
		{Name: "spike", Phrases: spike},
	}
}

func biggestCategory(s analytics.Snapshot) []string {
	if s.Biggest == nil || !s.Biggest.Amount.IsPositive() {
		return nil
	}
	return []string{fmt.Sprintf("High %s spending", strings.ToLower(string(s.Biggest.Category)))}
}

func weekSplit(s analytics.Snapshot) []string {
	wd, we := s.Split.Weekday.Average, s.Split.Weekend.Average
	switch {
	case we.GreaterThan(wd.Mul(spikeFactor)):
		return []string{"Weekend spending spikes"}
	case wd.GreaterThan(we.Mul(spikeFactor)):
		return []string{"Weekday spending spikes"}
	}
	return nil
}

func overspending(s analytics.Snapshot) []string {
	var out []string
	for _, p := range s.Predictions {
		if p.Predicted.GreaterThan(p.Actual.Mul(spikeFactor)) {
			out = append(out, fmt.Sprintf("%s overspending predicted", p.Category))
		}
	}
	return out
}

func spike(s analytics.Snapshot) []string {
	if s.Spike == nil {
		return nil
	}
	return []string{"Spending spike on " + s.Spike.Date.String()}
}

// Summarizer applies an ordered rule list.
type Summarizer struct {
	rules []Rule
}

// New returns a summarizer over rules; nil means DefaultRules.
func New(rules []Rule) *Summarizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Summarizer{rules: rules}
}

// Summarize collects phrases from each rule in order and keeps the first
// MaxPhrases. The result is never nil.
func (z *Summarizer) Summarize(s analytics.Snapshot) []string {
	out := []string{}
	for _, r := range z.rules {
		out = append(out, r.Phrases(s)...)
		if len(out) >= MaxPhrases {
			return out[:MaxPhrases]
		}
	}
	return out
}

// Summarize applies DefaultRules.
func Summarize(s analytics.Snapshot) []string {
	return New(nil).Summarize(s)
}
