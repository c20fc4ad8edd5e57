// Package api defines the core interfaces and data structures for smartspend.
package api

import (
	"context"
	"errors"
	"image"
	"time"
)

var (
	// ErrNotFound is returned when an update or delete matched no record owned by the caller.
	ErrNotFound = errors.New("expense not found or not owned by user")
	// ErrMissingOwner is returned when a record carries no owner.
	ErrMissingOwner = errors.New("missing user email")
	// ErrInvalidRecord is returned when a record fails amount or date coercion.
	ErrInvalidRecord = errors.New("invalid expense record")
	// ErrUndecodable is returned when an uploaded image or file cannot be decoded.
	ErrUndecodable = errors.New("input could not be decoded")
	// ErrUnsupportedFormat is returned for uploads that are neither csv nor xlsx/xls.
	ErrUnsupportedFormat = errors.New("unsupported file format, please upload a .csv or .xlsx file")
	// ErrUserNotFound is returned when no user has the requested email.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when registering an email twice.
	ErrEmailExists = errors.New("email already exists")
)

// Filter selects records from a Store. OwnerID is mandatory.
type Filter struct {
	OwnerID string
	// From and To bound the record date, inclusive. Records without a date
	// are only returned when both bounds are nil.
	From *time.Time
	To   *time.Time
}

// Match reports whether e passes f.
func (f Filter) Match(e Expense) bool {
	if e.OwnerID != f.OwnerID {
		return false
	}
	if f.From == nil && f.To == nil {
		return true
	}
	if e.Date.IsZero() {
		return false
	}
	t := e.Date.Time()
	if f.From != nil && t.Before(DateOf(*f.From).Time()) {
		return false
	}
	if f.To != nil && t.After(DateOf(*f.To).Time()) {
		return false
	}
	return true
}

// Store persists expense records keyed by owner.
// Every mutating call is scoped by owner: an id that exists under a different
// owner reports zero affected rows.
type Store interface {
	Insert(ctx context.Context, e Expense) (string, error)
	InsertMany(ctx context.Context, es []Expense) ([]string, error)
	Find(ctx context.Context, f Filter) ([]Expense, error)
	Update(ctx context.Context, id, owner string, patch ExpensePatch) (int64, error)
	Delete(ctx context.Context, id, owner string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// UserStore persists registered users.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (string, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// Recognizer turns a normalized receipt image into raw text.
// Only characters in whitelist should appear in the result.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, whitelist string) (string, error)
}

// Classifier maps already-normalized text to a category label.
// Implementations must be safe for concurrent use and must not mutate
// their model.
type Classifier interface {
	Categorize(normalized string) Category
}

// Mirror consumes persisted records from a channel and writes them to a
// secondary log destination.
type Mirror interface {
	Write(ctx context.Context, in <-chan *Expense) error
}
