package service

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
	csvmirror "github.com/ArionMiles/smartspend/pkg/writer/csv"
)

// SyncResult is the outcome of re-importing a mirror log.
type SyncResult struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
}

// Sync re-imports a CSV mirror log into the store. Rows logged for owner,
// and rows logged without any owner, are stored under owner with their
// logged category. Undated and unreadable rows are skipped. Synced records
// are not mirrored again.
func (s *Service) Sync(ctx context.Context, owner string, r io.Reader) (SyncResult, error) {
	if err := requireOwner(owner); err != nil {
		return SyncResult{}, err
	}
	logged, skipped, err := csvmirror.ReadLog(r)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %v", api.ErrUndecodable, err)
	}

	records := make([]api.Expense, 0, len(logged))
	for _, e := range logged {
		if (e.OwnerID != "" && e.OwnerID != owner) || e.Date.IsZero() {
			skipped++
			continue
		}
		e.OwnerID = owner
		e.Amount = e.Amount.Abs()
		e.CreatedAt = s.now().UTC()
		records = append(records, e)
	}
	if len(records) > 0 {
		if _, err := s.store.InsertMany(ctx, records); err != nil {
			return SyncResult{}, fmt.Errorf("storing records: %w", err)
		}
	}

	s.logger.Info("synced mirror log", "owner", owner, "synced", len(records), "skipped", skipped)
	return SyncResult{Synced: len(records), Skipped: skipped}, nil
}

type seedItem struct {
	name     string
	min, max float64
}

var seedCatalog = []struct {
	category api.Category
	items    []seedItem
}{
	{api.CategoryFood, []seedItem{{"Pizza", 200, 350}, {"Burger", 100, 250}, {"Noodles", 150, 300}}},
	{api.CategoryGroceries, []seedItem{{"Rice", 100, 200}, {"Milk", 30, 60}, {"Eggs", 50, 100}}},
	{api.CategoryTransport, []seedItem{{"Uber", 150, 500}, {"Train", 50, 200}, {"Bus", 20, 100}}},
	{api.CategoryRent, []seedItem{{"Flat Rent", 8000, 20000}}},
	{api.CategoryEntertainment, []seedItem{{"Cinema", 200, 500}, {"Concert", 500, 3000}}},
	{api.CategoryPersonalCare, []seedItem{{"Moisturiser", 150, 500}, {"Lipbalm", 50, 200}, {"Manicure", 250, 500}}},
	{api.CategoryUtilities, []seedItem{{"Broom", 100, 200}, {"Curtains", 500, 1500}}},
	{api.CategoryElectronics, []seedItem{{"Earphones", 800, 2500}, {"Battery", 100, 500}}},
	{api.CategoryClothing, []seedItem{{"Shirt", 500, 1500}, {"Jeans", 1000, 2500}}},
}

// SeedMonths is how many calendar months Seed fills, ending with the
// current one.
const SeedMonths = 3

// Seed stores perMonth generated records on random days of each of the last
// SeedMonths months, for demos. Days run from 1 to 28 so every month can
// hold them; in the current month they may lie in the future.
func (s *Service) Seed(ctx context.Context, owner string, perMonth int, rng *rand.Rand) (int, error) {
	if err := requireOwner(owner); err != nil {
		return 0, err
	}
	if perMonth <= 0 {
		return 0, nil
	}

	now := s.now().In(s.loc)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	records := make([]api.Expense, 0, perMonth*SeedMonths)
	for m := SeedMonths - 1; m >= 0; m-- {
		month := first.AddDate(0, -m, 0)
		for range perMonth {
			c := seedCatalog[rng.IntN(len(seedCatalog))]
			it := c.items[rng.IntN(len(c.items))]
			amount := it.min + rng.Float64()*(it.max-it.min)
			records = append(records, api.Expense{
				OwnerID:     owner,
				Date:        api.NewDate(month.Year(), month.Month(), 1+rng.IntN(28)),
				Description: it.name,
				Amount:      decimal.NewFromFloat(amount).Round(2),
				Category:    c.category,
			})
		}
	}

	if _, err := s.persist(ctx, records); err != nil {
		return 0, err
	}
	s.logger.Info("seeded demo records", "owner", owner, "count", len(records))
	return len(records), nil
}
