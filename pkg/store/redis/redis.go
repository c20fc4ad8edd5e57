// Package redis stores expenses as JSON documents in Redis.
//
// Each record lives under <prefix>:expense:<id>. A sorted set per owner,
// <prefix>:owner:<owner>, indexes the owner's record ids by date. Users are
// kept under <prefix>:user:<lower-cased email>.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "smartspend"

// maxTxRetries bounds optimistic-lock retries for one update or delete.
const maxTxRetries = 5

// Config holds the Redis store configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string

	// ConnectAttempts is how many times the initial ping is tried.
	ConnectAttempts uint
}

// Store implements api.Store and api.UserStore on Redis.
type Store struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// New connects to Redis and waits until it answers.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "redis")
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = 5
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.Do(
		func() error { return rdb.Ping(ctx).Err() },
		retry.Context(ctx),
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("redis not reachable, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return &Store{
		rdb:    rdb,
		prefix: cfg.Prefix,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) expenseKey(id string) string { return s.prefix + ":expense:" + id }
func (s *Store) ownerKey(owner string) string { return s.prefix + ":owner:" + owner }
func (s *Store) userKey(email string) string {
	return s.prefix + ":user:" + strings.ToLower(email)
}

// score orders an owner's index by date. Undated records sort last.
func score(d api.Date) float64 {
	if d.IsZero() {
		return float64(1 << 53)
	}
	return float64(d.Time().Unix())
}

// Insert implements api.Store.
func (s *Store) Insert(ctx context.Context, e api.Expense) (string, error) {
	ids, err := s.InsertMany(ctx, []api.Expense{e})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertMany implements api.Store. All records are written in one MULTI/EXEC.
func (s *Store) InsertMany(ctx context.Context, es []api.Expense) ([]string, error) {
	if len(es) == 0 {
		return nil, nil
	}

	prepared := make([]api.Expense, len(es))
	docs := make([][]byte, len(es))
	ids := make([]string, len(es))
	for i, e := range es {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.now()
		}
		b, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encoding expense: %w", err)
		}
		prepared[i], docs[i], ids[i] = e, b, e.ID
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, e := range prepared {
			pipe.Set(ctx, s.expenseKey(e.ID), docs[i], 0)
			pipe.ZAdd(ctx, s.ownerKey(e.OwnerID), redis.Z{Score: score(e.Date), Member: e.ID})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing expenses: %w", err)
	}
	return ids, nil
}

// Find implements api.Store.
func (s *Store) Find(ctx context.Context, f api.Filter) ([]api.Expense, error) {
	if f.OwnerID == "" {
		return nil, api.ErrMissingOwner
	}

	by := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if f.From != nil {
		by.Min = strconv.FormatInt(api.DateOf(*f.From).Time().Unix(), 10)
	}
	if f.To != nil {
		by.Max = strconv.FormatInt(api.DateOf(*f.To).Time().Unix(), 10)
	}

	ids, err := s.rdb.ZRangeByScore(ctx, s.ownerKey(f.OwnerID), by).Result()
	if err != nil {
		return nil, fmt.Errorf("reading owner index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.expenseKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading expenses: %w", err)
	}

	out := make([]api.Expense, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index entry outlived its document.
			s.logger.Debug("dangling index entry", "id", ids[i])
			continue
		}
		var e api.Expense
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decoding expense %s: %w", ids[i], err)
		}
		if f.Match(e) {
			out = append(out, e)
		}
	}
	api.SortExpenses(out)
	return out, nil
}

// mutate runs fn on the record under an optimistic lock. fn returns the
// new record, or nil to delete it. Records owned by someone else count as
// not found.
func (s *Store) mutate(ctx context.Context, id, owner string, fn func(e *api.Expense) (*api.Expense, error)) (int64, error) {
	if owner == "" {
		return 0, api.ErrMissingOwner
	}
	key := s.expenseKey(id)

	var affected int64
	txf := func(tx *redis.Tx) error {
		affected = 0
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var e api.Expense
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("decoding expense %s: %w", id, err)
		}
		if e.OwnerID != owner {
			return nil
		}

		next, err := fn(&e)
		if err != nil {
			return err
		}

		var doc []byte
		if next != nil {
			if doc, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encoding expense: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, s.ownerKey(owner), id)
				return nil
			}
			pipe.Set(ctx, key, doc, 0)
			pipe.ZAdd(ctx, s.ownerKey(owner), redis.Z{Score: score(next.Date), Member: id})
			return nil
		})
		if err == nil {
			affected = 1
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return affected, err
	}
	return 0, fmt.Errorf("expense %s: too much contention", id)
}

// Update implements api.Store.
func (s *Store) Update(ctx context.Context, id, owner string, patch api.ExpensePatch) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	return s.mutate(ctx, id, owner, func(e *api.Expense) (*api.Expense, error) {
		patch.Apply(e)
		return e, e.Validate()
	})
}

// Delete implements api.Store.
func (s *Store) Delete(ctx context.Context, id, owner string) (int64, error) {
	return s.mutate(ctx, id, owner, func(*api.Expense) (*api.Expense, error) {
		return nil, nil
	})
}

// userDoc is the stored form of a user; api.User hides the hash from JSON.
type userDoc struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"password_hash"`
}

// CreateUser implements api.UserStore.
func (s *Store) CreateUser(ctx context.Context, u api.User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	b, err := json.Marshal(userDoc{ID: u.ID, Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash})
	if err != nil {
		return "", fmt.Errorf("encoding user: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, s.userKey(u.Email), b, 0).Result()
	if err != nil {
		return "", fmt.Errorf("writing user: %w", err)
	}
	if !ok {
		return "", api.ErrEmailExists
	}
	return u.ID, nil
}

// FindUserByEmail implements api.UserStore.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (api.User, error) {
	raw, err := s.rdb.Get(ctx, s.userKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return api.User{}, api.ErrUserNotFound
	}
	if err != nil {
		return api.User{}, fmt.Errorf("reading user: %w", err)
	}

	var d userDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return api.User{}, fmt.Errorf("decoding user: %w", err)
	}
	return api.User{ID: d.ID, Name: d.Name, Email: d.Email, PasswordHash: d.PasswordHash}, nil
}

// Ping implements api.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close implements api.Store.
func (s *Store) Close() error {
	return s.rdb.Close()
}
