package api

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single categorized expense owned by one user.
type Expense struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the invariants every persisted record must hold.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrMissingOwner
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidRecord, e.Amount)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRecord, e.Category)
	}
	return nil
}

// SortExpenses orders records by date with undated records last, then by
// creation time and id.
func SortExpenses(es []Expense) {
	slices.SortStableFunc(es, func(a, b Expense) int {
		switch {
		case a.Date.IsZero() && !b.Date.IsZero():
			return 1
		case !a.Date.IsZero() && b.Date.IsZero():
			return -1
		}
		if c := a.Date.Time().Compare(b.Date.Time()); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ExpensePatch holds the fields of an update. Nil fields are left untouched.
type ExpensePatch struct {
	Date        *Date            `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *Category        `json:"category,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ExpensePatch) Empty() bool {
	return p.Date == nil && p.Description == nil && p.Amount == nil && p.Category == nil
}

// Validate rejects patches that would break record invariants.
func (p ExpensePatch) Validate() error {
	if p.Amount != nil && p.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidRecord, p.Amount)
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRecord, *p.Category)
	}
	return nil
}

// Apply copies the set fields of p onto e.
func (p ExpensePatch) Apply(e *Expense) {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
}

// LineItem is a purchased item recovered from receipt text.
// It only lives for the duration of one extraction call.
type LineItem struct {
	RawLine  string          `json:"-"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category Category        `json:"category"`
}

// User is a registered account. Its email is the owner id of its expenses.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"-"`
}
