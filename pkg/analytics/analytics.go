// Package analytics derives spending views from one owner's expense records.
//
// Every view is a pure function over a record slice. Records without a date
// are left out of all views. Engine loads a fresh record set from the store
// on each call and keeps no state between calls.
package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// CategoryTotal is the summed spend of one category.
type CategoryTotal struct {
	Name  api.Category    `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// Aggregate is the total and mean of a set of records.
type Aggregate struct {
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
}

// WeekSplit compares spend on weekdays against Saturday and Sunday.
type WeekSplit struct {
	Weekday Aggregate `json:"weekday"`
	Weekend Aggregate `json:"weekend"`
}

// Prediction extrapolates one category's next month from its last two.
type Prediction struct {
	Category  api.Category    `json:"category"`
	Actual    decimal.Decimal `json:"actual"`
	Predicted decimal.Decimal `json:"predicted"`
}

// Biggest is the category with the highest total spend.
type Biggest struct {
	Category api.Category    `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SpikeItem is one record contributing to a spike day.
type SpikeItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    api.Category    `json:"category"`
}

// Spike is the highest-spend day of the most recent month.
type Spike struct {
	Date  api.Date        `json:"spike_date"`
	Total decimal.Decimal `json:"total_amount"`
	Items []SpikeItem     `json:"items"`
}

// WeekTotal is the spend of one Monday to Sunday week.
type WeekTotal struct {
	Week     string          `json:"week"`
	Spending decimal.Decimal `json:"spending"`
}

// Snapshot bundles every view over one record set.
type Snapshot struct {
	Breakdown   []CategoryTotal `json:"category_breakdown"`
	Biggest     *Biggest        `json:"biggest_category"`
	Split       WeekSplit       `json:"weekday_vs_weekend"`
	Predictions []Prediction    `json:"predictions"`
	Spike       *Spike          `json:"spending_spike"`
	Weekly      []WeekTotal     `json:"weekly_trend"`
}

func round(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// dated drops records without a date.
func dated(records []api.Expense) []api.Expense {
	out := make([]api.Expense, 0, len(records))
	for _, e := range records {
		if !e.Date.IsZero() {
			out = append(out, e)
		}
	}
	return out
}

func isWeekend(d api.Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// totals sums amounts per category.
func totals(records []api.Expense) map[api.Category]decimal.Decimal {
	sums := make(map[api.Category]decimal.Decimal)
	for _, e := range records {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	return sums
}

// CategoryBreakdown sums spend per category, ordered by category name.
func CategoryBreakdown(records []api.Expense) []CategoryTotal {
	sums := totals(dated(records))
	out := make([]CategoryTotal, 0, len(sums))
	for c, v := range sums {
		out = append(out, CategoryTotal{Name: c, Value: round(v)})
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// WeekdayVsWeekend reports total and mean spend per partition. An empty
// partition reports zero for both.
func WeekdayVsWeekend(records []api.Expense) WeekSplit {
	var (
		sum   [2]decimal.Decimal
		count [2]int64
	)
	for _, e := range dated(records) {
		i := 0
		if isWeekend(e.Date) {
			i = 1
		}
		sum[i] = sum[i].Add(e.Amount)
		count[i]++
	}

	agg := func(i int) Aggregate {
		if count[i] == 0 {
			return Aggregate{Total: decimal.Zero, Average: decimal.Zero}
		}
		return Aggregate{
			Total:   round(sum[i]),
			Average: round(sum[i].Div(decimal.NewFromInt(count[i]))),
		}
	}
	return WeekSplit{Weekday: agg(0), Weekend: agg(1)}
}

// Predictions extrapolates each category over the two most recent months
// that have positive spend. A category missing from one of the months
// counts as zero there. Fewer than two months yield an empty slice.
func Predictions(records []api.Expense) []Prediction {
	byMonth := make(map[string]map[api.Category]decimal.Decimal)
	for _, e := range dated(records) {
		if !e.Amount.IsPositive() {
			continue
		}
		key := e.Date.MonthKey()
		if byMonth[key] == nil {
			byMonth[key] = make(map[api.Category]decimal.Decimal)
		}
		byMonth[key][e.Category] = byMonth[key][e.Category].Add(e.Amount)
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	if len(months) < 2 {
		return []Prediction{}
	}
	slices.Sort(months)
	prev, latest := byMonth[months[len(months)-2]], byMonth[months[len(months)-1]]

	var cats []api.Category
	for c := range prev {
		cats = append(cats, c)
	}
	for c := range latest {
		if _, ok := prev[c]; !ok {
			cats = append(cats, c)
		}
	}
	slices.Sort(cats)

	out := make([]Prediction, 0, len(cats))
	for _, c := range cats {
		l, p := latest[c], prev[c]
		out = append(out, Prediction{
			Category:  c,
			Actual:    round(l),
			Predicted: round(l.Add(l.Sub(p))),
		})
	}
	return out
}

// BiggestCategory returns the category with the highest total. Ties go to
// the lexicographically first category. It reports false when there are no
// dated records.
func BiggestCategory(records []api.Expense) (Biggest, bool) {
	var (
		best  Biggest
		found bool
	)
	for _, ct := range CategoryBreakdown(records) {
		if !found || ct.Value.GreaterThan(best.Amount) {
			best, found = Biggest{Category: ct.Name, Amount: ct.Value}, true
		}
	}
	return best, found
}

// SpendingSpike finds the highest-spend day of the most recent month in the
// data. Ties go to the earliest day. It reports false when there are no
// dated records.
func SpendingSpike(records []api.Expense) (Spike, bool) {
	rs := dated(records)
	if len(rs) == 0 {
		return Spike{}, false
	}

	latest := ""
	for _, e := range rs {
		if m := e.Date.MonthKey(); m > latest {
			latest = m
		}
	}

	days := make(map[api.Date]decimal.Decimal)
	for _, e := range rs {
		if e.Date.MonthKey() == latest {
			days[e.Date] = days[e.Date].Add(e.Amount)
		}
	}

	var (
		spikeDay api.Date
		spikeSum decimal.Decimal
		found    bool
	)
	for d, sum := range days {
		switch {
		case !found, sum.GreaterThan(spikeSum), sum.Equal(spikeSum) && d.Before(spikeDay):
			spikeDay, spikeSum, found = d, sum, true
		}
	}

	items := []SpikeItem{}
	for _, e := range rs {
		if e.Date == spikeDay {
			items = append(items, SpikeItem{Description: e.Description, Amount: round(e.Amount), Category: e.Category})
		}
	}
	return Spike{Date: spikeDay, Total: round(spikeSum), Items: items}, true
}

// weekOf returns the Monday and Sunday around d.
func weekOf(d api.Date) (api.Date, api.Date) {
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDays(-offset)
	return monday, monday.AddDays(6)
}

// WeeklyTrend sums spend per Monday to Sunday week, labelled
// "YYYY-MM-DD/YYYY-MM-DD" and ordered by week.
func WeeklyTrend(records []api.Expense) []WeekTotal {
	sums := make(map[string]decimal.Decimal)
	for _, e := range dated(records) {
		mon, sun := weekOf(e.Date)
		key := mon.String() + "/" + sun.String()
		sums[key] = sums[key].Add(e.Amount)
	}

	out := make([]WeekTotal, 0, len(sums))
	for w, v := range sums {
		out = append(out, WeekTotal{Week: w, Spending: round(v)})
	}
	slices.SortFunc(out, func(a, b WeekTotal) int { return cmp.Compare(a.Week, b.Week) })
	return out
}

// Compute builds every view over records.
func Compute(records []api.Expense) Snapshot {
	s := Snapshot{
		Breakdown:   CategoryBreakdown(records),
		Split:       WeekdayVsWeekend(records),
		Predictions: Predictions(records),
		Weekly:      WeeklyTrend(records),
	}
	if b, ok := BiggestCategory(records); ok {
		s.Biggest = &b
	}
	if sp, ok := SpendingSpike(records); ok {
		s.Spike = &sp
	}
	return s
}

// Finder reads records from a store.
type Finder interface {
	Find(ctx context.Context, f api.Filter) ([]api.Expense, error)
}

// Engine computes views over the current records of one owner.
type Engine struct {
	store Finder
}

// NewEngine returns an engine reading from store.
func NewEngine(store Finder) *Engine {
	return &Engine{store: store}
}

// Records loads every record of owner.
func (e *Engine) Records(ctx context.Context, owner string) ([]api.Expense, error) {
	if owner == "" {
		return nil, api.ErrMissingOwner
	}
	rs, err := e.store.Find(ctx, api.Filter{OwnerID: owner})
	if err != nil {
		return nil, fmt.Errorf("loading records for analytics: %w", err)
	}
	return rs, nil
}

// Snapshot loads the records of owner and computes every view.
func (e *Engine) Snapshot(ctx context.Context, owner string) (Snapshot, error) {
	rs, err := e.Records(ctx, owner)
	if err != nil {
		return Snapshot{}, err
	}
	return Compute(rs), nil
}
