package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/logging"
)

// TestNew_ConnectionFailure tests that the store returns an error when connection fails.
func TestNew_ConnectionFailure(t *testing.T) {
	cfg := Config{
		Host:            "nonexistent-host",
		Port:            5432,
		Database:        "smartspend",
		User:            "smartspend",
		Password:        "password",
		ConnectAttempts: 1,
	}

	_, err := New(context.Background(), cfg, logging.Discard())
	if err == nil {
		t.Error("expected error when connecting to nonexistent host, got nil")
	}
}

func TestParseID(t *testing.T) {
	if _, ok := parseID("not-a-uuid"); ok {
		t.Error("expected invalid id to be rejected")
	}
	if _, ok := parseID("3b241101-e2bb-4255-8caf-4136c566a962"); !ok {
		t.Error("expected valid uuid to parse")
	}
}

// newTestStore starts a disposable PostgreSQL container.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("SMARTSPEND_INTEGRATION") == "" {
		t.Skip("SMARTSPEND_INTEGRATION not set, skipping integration test")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("smartspend"),
		tcpostgres.WithUsername("smartspend"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	s, err := New(ctx, Config{DSN: dsn}, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreIntegration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.InsertMany(ctx, []api.Expense{
		{OwnerID: "alice", Date: api.NewDate(2025, time.February, 3), Description: "pizza", Amount: decimal.RequireFromString("250.00"), Category: api.CategoryFood},
		{OwnerID: "alice", Description: "mystery", Amount: decimal.RequireFromString("9.99"), Category: api.CategoryOther},
		{OwnerID: "bob", Date: api.NewDate(2025, time.January, 1), Description: "uber", Amount: decimal.RequireFromString("150"), Category: api.CategoryTransport},
	})
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}

	got, err := s.Find(ctx, api.Filter{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Description != "pizza" || !got[0].Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("first record: got %+v", got[0])
	}
	if got[0].Date != api.NewDate(2025, time.February, 3) {
		t.Errorf("date: got %v", got[0].Date)
	}
	if !got[1].Date.IsZero() {
		t.Errorf("undated record should sort last, got %+v", got[1])
	}

	from := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	ranged, err := s.Find(ctx, api.Filter{OwnerID: "alice", From: &from})
	if err != nil || len(ranged) != 1 {
		t.Errorf("ranged find: got %d records, %v", len(ranged), err)
	}

	// Ownership isolation.
	n, err := s.Delete(ctx, ids[0], "bob")
	if err != nil || n != 0 {
		t.Errorf("delete wrong owner: got (%d, %v)", n, err)
	}
	n, err = s.Delete(ctx, "not-a-uuid", "alice")
	if err != nil || n != 0 {
		t.Errorf("delete invalid id: got (%d, %v)", n, err)
	}

	amount := decimal.RequireFromString("199.50")
	n, err = s.Update(ctx, ids[0], "alice", api.ExpensePatch{Amount: &amount})
	if err != nil || n != 1 {
		t.Fatalf("update: got (%d, %v)", n, err)
	}
	n, err = s.Update(ctx, ids[0], "alice", api.ExpensePatch{})
	if err != nil || n != 1 {
		t.Errorf("empty patch on existing record: got (%d, %v)", n, err)
	}

	got, _ = s.Find(ctx, api.Filter{OwnerID: "alice"})
	if !got[0].Amount.Equal(amount) {
		t.Errorf("updated amount: got %s", got[0].Amount)
	}

	n, err = s.Delete(ctx, ids[0], "alice")
	if err != nil || n != 1 {
		t.Errorf("delete: got (%d, %v)", n, err)
	}
}

func TestUsersIntegration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUser(ctx, api.User{Name: "Alice", Email: "alice@example.com", PasswordHash: []byte("hash")})
	if err != nil || id == "" {
		t.Fatalf("CreateUser: (%q, %v)", id, err)
	}
	if _, err := s.CreateUser(ctx, api.User{Name: "Again", Email: "ALICE@example.com", PasswordHash: []byte("x")}); !errors.Is(err, api.ErrEmailExists) {
		t.Errorf("duplicate: got %v, want ErrEmailExists", err)
	}

	u, err := s.FindUserByEmail(ctx, "alice@example.com")
	if err != nil || u.ID != id || string(u.PasswordHash) != "hash" {
		t.Errorf("got (%+v, %v)", u, err)
	}
	if _, err := s.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, api.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}
