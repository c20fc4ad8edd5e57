// Package memory is an in-process expense and user store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// Store keeps records in maps guarded by a mutex. The zero value is not
// usable; call New.
type Store struct {
	mu       sync.RWMutex
	expenses map[string]api.Expense
	users    map[string]api.User // keyed by lower-cased email
	now      func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		expenses: make(map[string]api.Expense),
		users:    make(map[string]api.User),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) prepare(e api.Expense) (api.Expense, error) {
	if err := e.Validate(); err != nil {
		return api.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	return e, nil
}

// Insert implements api.Store.
func (s *Store) Insert(ctx context.Context, e api.Expense) (string, error) {
	ids, err := s.InsertMany(ctx, []api.Expense{e})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertMany implements api.Store. Either every record is stored or none is.
func (s *Store) InsertMany(_ context.Context, es []api.Expense) ([]string, error) {
	prepared := make([]api.Expense, len(es))
	for i, e := range es {
		p, err := s.prepare(e)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(prepared))
	for i, e := range prepared {
		s.expenses[e.ID] = e
		ids[i] = e.ID
	}
	return ids, nil
}

// Find implements api.Store.
func (s *Store) Find(_ context.Context, f api.Filter) ([]api.Expense, error) {
	if f.OwnerID == "" {
		return nil, api.ErrMissingOwner
	}

	s.mu.RLock()
	var out []api.Expense
	for _, e := range s.expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	api.SortExpenses(out)
	return out, nil
}

// Update implements api.Store.
func (s *Store) Update(_ context.Context, id, owner string, patch api.ExpensePatch) (int64, error) {
	if owner == "" {
		return 0, api.ErrMissingOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.OwnerID != owner {
		return 0, nil
	}
	patch.Apply(&e)
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.expenses[id] = e
	return 1, nil
}

// Delete implements api.Store.
func (s *Store) Delete(_ context.Context, id, owner string) (int64, error) {
	if owner == "" {
		return 0, api.ErrMissingOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.OwnerID != owner {
		return 0, nil
	}
	delete(s.expenses, id)
	return 1, nil
}

// CreateUser implements api.UserStore.
func (s *Store) CreateUser(_ context.Context, u api.User) (string, error) {
	key := strings.ToLower(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[key]; exists {
		return "", api.ErrEmailExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[key] = u
	return u.ID, nil
}

// FindUserByEmail implements api.UserStore.
func (s *Store) FindUserByEmail(_ context.Context, email string) (api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return api.User{}, api.ErrUserNotFound
	}
	return u, nil
}

// Ping implements api.Store.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements api.Store.
func (s *Store) Close() error { return nil }
