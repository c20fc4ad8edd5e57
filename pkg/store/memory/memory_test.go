package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
)

func expense(owner, desc string, amount int64, d api.Date) api.Expense {
	return api.Expense{
		OwnerID:     owner,
		Date:        d,
		Description: desc,
		Amount:      decimal.NewFromInt(amount),
		Category:    api.CategoryFood,
	}
}

func TestInsertFind(t *testing.T) {
	ctx := context.Background()
	s := New()

	jan := api.NewDate(2025, time.January, 10)
	feb := api.NewDate(2025, time.February, 10)

	ids, err := s.InsertMany(ctx, []api.Expense{
		expense("alice@example.com", "pizza", 250, feb),
		expense("alice@example.com", "coffee", 5, jan),
		expense("bob@example.com", "tea", 3, jan),
	})
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	if len(ids) != 3 || ids[0] == "" || ids[0] == ids[1] {
		t.Fatalf("unexpected ids %v", ids)
	}

	got, err := s.Find(ctx, api.Filter{OwnerID: "alice@example.com"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Description != "coffee" || got[1].Description != "pizza" {
		t.Errorf("order: got %s, %s", got[0].Description, got[1].Description)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestInsertRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Insert(ctx, expense("", "pizza", 1, api.Date{}))
	if !errors.Is(err, api.ErrMissingOwner) {
		t.Errorf("got %v, want ErrMissingOwner", err)
	}

	_, err = s.InsertMany(ctx, []api.Expense{
		expense("a", "ok", 1, api.Date{}),
		expense("a", "bad", -1, api.Date{}),
	})
	if !errors.Is(err, api.ErrInvalidRecord) {
		t.Errorf("got %v, want ErrInvalidRecord", err)
	}
	if got, _ := s.Find(ctx, api.Filter{OwnerID: "a"}); len(got) != 0 {
		t.Errorf("partial insert: %d records stored", len(got))
	}
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Insert(ctx, expense("alice", "pizza", 10, api.Date{}))
	if err != nil {
		t.Fatal(err)
	}

	desc := "stolen"
	n, err := s.Update(ctx, id, "mallory", api.ExpensePatch{Description: &desc})
	if err != nil || n != 0 {
		t.Errorf("update wrong owner: got (%d, %v), want (0, nil)", n, err)
	}

	n, err = s.Delete(ctx, id, "mallory")
	if err != nil || n != 0 {
		t.Errorf("delete wrong owner: got (%d, %v), want (0, nil)", n, err)
	}

	got, _ := s.Find(ctx, api.Filter{OwnerID: "alice"})
	if len(got) != 1 || got[0].Description != "pizza" {
		t.Fatalf("record should be untouched, got %+v", got)
	}

	n, err = s.Delete(ctx, id, "alice")
	if err != nil || n != 1 {
		t.Errorf("delete owner: got (%d, %v), want (1, nil)", n, err)
	}
	n, _ = s.Delete(ctx, id, "alice")
	if n != 0 {
		t.Errorf("second delete: got %d, want 0", n)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, _ := s.Insert(ctx, expense("alice", "pizza", 10, api.Date{}))

	amount := decimal.RequireFromString("12.50")
	cat := api.CategoryGroceries
	n, err := s.Update(ctx, id, "alice", api.ExpensePatch{Amount: &amount, Category: &cat})
	if err != nil || n != 1 {
		t.Fatalf("got (%d, %v), want (1, nil)", n, err)
	}

	got, _ := s.Find(ctx, api.Filter{OwnerID: "alice"})
	if !got[0].Amount.Equal(amount) || got[0].Category != cat || got[0].Description != "pizza" {
		t.Errorf("got %+v", got[0])
	}

	neg := decimal.NewFromInt(-3)
	if _, err := s.Update(ctx, id, "alice", api.ExpensePatch{Amount: &neg}); !errors.Is(err, api.ErrInvalidRecord) {
		t.Errorf("got %v, want ErrInvalidRecord", err)
	}
	if n, _ := s.Update(ctx, "missing", "alice", api.ExpensePatch{Amount: &amount}); n != 0 {
		t.Errorf("missing id: got %d, want 0", n)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateUser(ctx, api.User{Name: "Alice", Email: "alice@example.com", PasswordHash: []byte("x")})
	if err != nil || id == "" {
		t.Fatalf("CreateUser: (%q, %v)", id, err)
	}
	if _, err := s.CreateUser(ctx, api.User{Email: "Alice@Example.com"}); !errors.Is(err, api.ErrEmailExists) {
		t.Errorf("duplicate: got %v, want ErrEmailExists", err)
	}

	u, err := s.FindUserByEmail(ctx, "alice@example.com")
	if err != nil || u.ID != id || u.Name != "Alice" {
		t.Errorf("got (%+v, %v)", u, err)
	}
	if _, err := s.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, api.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}
