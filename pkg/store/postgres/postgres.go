// Package postgres provides a PostgreSQL expense and user store.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
)

//go:embed 001_create_expenses.sql
var migrationSQL string

const uniqueViolation = "23505"

// Config holds the PostgreSQL store configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// DSN overrides the individual connection fields when set.
	DSN string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int

	// ConnectAttempts is how many times the initial ping is tried.
	ConnectAttempts uint
	// ConnectDelay is the base delay between ping attempts.
	ConnectDelay time.Duration
}

// Store reads and writes expenses in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, waits for the database to answer and runs migrations.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres")

	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = 5
	}
	if cfg.ConnectDelay == 0 {
		cfg.ConnectDelay = time.Second
	}

	connStr := cfg.DSN
	if connStr == "" {
		connStr = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		retry.Context(ctx),
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(cfg.ConnectDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not reachable, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	s := &Store{pool: pool, logger: logger}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	s.logger.Info("running database migrations")
	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

const insertExpense = `
	INSERT INTO expenses (owner_id, date, description, amount, category, created_at)
	VALUES ($1, $2, $3, $4::text::numeric, $5, $6)
	RETURNING id::text
`

func insertArgs(e api.Expense) []any {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []any{e.OwnerID, dateArg(e.Date), e.Description, e.Amount.StringFixed(2), string(e.Category), created}
}

// Insert implements api.Store.
func (s *Store) Insert(ctx context.Context, e api.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	var id string
	if err := s.pool.QueryRow(ctx, insertExpense, insertArgs(e)...).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting expense: %w", err)
	}
	return id, nil
}

// InsertMany implements api.Store. The records are written in one
// transaction.
func (s *Store) InsertMany(ctx context.Context, es []api.Expense) ([]string, error) {
	if len(es) == 0 {
		return nil, nil
	}
	for _, e := range es {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range es {
		batch.Queue(insertExpense, insertArgs(e)...)
	}

	results := tx.SendBatch(ctx, batch)
	ids := make([]string, len(es))
	for i := range es {
		if err := results.QueryRow().Scan(&ids[i]); err != nil {
			results.Close()
			return nil, fmt.Errorf("inserting expense %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	s.logger.Debug("inserted expenses", "count", len(ids))
	return ids, nil
}

// Find implements api.Store.
func (s *Store) Find(ctx context.Context, f api.Filter) ([]api.Expense, error) {
	if f.OwnerID == "" {
		return nil, api.ErrMissingOwner
	}

	query := `SELECT id::text, owner_id, date, description, amount::text, category, created_at
		FROM expenses WHERE owner_id = $1`
	args := []any{f.OwnerID}
	if f.From != nil {
		args = append(args, api.DateOf(*f.From).Time())
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, api.DateOf(*f.To).Time())
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date, created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	var out []api.Expense
	for rows.Next() {
		var (
			e        api.Expense
			date     pgtype.Date
			amount   string
			category string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &date, &e.Description, &amount, &category, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		if date.Valid {
			e.Date = api.DateOf(date.Time)
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
		}
		e.Category = api.ParseCategory(category)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}
	return out, nil
}

// Update implements api.Store.
func (s *Store) Update(ctx context.Context, id, owner string, patch api.ExpensePatch) (int64, error) {
	if owner == "" {
		return 0, api.ErrMissingOwner
	}
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	uid, ok := parseID(id)
	if !ok {
		return 0, nil
	}

	args := []any{uid, owner}
	var sets []string
	set := func(column, cast string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", column, len(args), cast))
	}
	if patch.Date != nil {
		set("date", "", dateArg(*patch.Date))
	}
	if patch.Description != nil {
		set("description", "", *patch.Description)
	}
	if patch.Amount != nil {
		set("amount", "::text::numeric", patch.Amount.StringFixed(2))
	}
	if patch.Category != nil {
		set("category", "", string(*patch.Category))
	}
	if len(sets) == 0 {
		// Still report whether the record is there.
		sets = append(sets, "description = description")
	}

	query := fmt.Sprintf("UPDATE expenses SET %s WHERE id = $1 AND owner_id = $2", strings.Join(sets, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating expense: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete implements api.Store.
func (s *Store) Delete(ctx context.Context, id, owner string) (int64, error) {
	if owner == "" {
		return 0, api.ErrMissingOwner
	}
	uid, ok := parseID(id)
	if !ok {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1 AND owner_id = $2", uid, owner)
	if err != nil {
		return 0, fmt.Errorf("deleting expense: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CreateUser implements api.UserStore.
func (s *Store) CreateUser(ctx context.Context, u api.User) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id::text",
		u.Name, u.Email, u.PasswordHash,
	).Scan(&id)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return "", api.ErrEmailExists
	}
	if err != nil {
		return "", fmt.Errorf("inserting user: %w", err)
	}
	return id, nil
}

// FindUserByEmail implements api.UserStore.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (api.User, error) {
	var u api.User
	err := s.pool.QueryRow(ctx,
		"SELECT id::text, name, email, password_hash FROM users WHERE lower(email) = lower($1)",
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.User{}, api.ErrUserNotFound
	}
	if err != nil {
		return api.User{}, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// Ping implements api.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("closed PostgreSQL connection pool")
	}
	return nil
}

// parseID reports false for ids that cannot exist, which callers treat as
// zero affected rows.
func parseID(id string) (pgtype.UUID, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: u, Valid: true}, true
}

func dateArg(d api.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}
