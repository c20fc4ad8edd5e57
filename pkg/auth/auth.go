// Package auth registers users and checks their passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ArionMiles/smartspend/pkg/api"
)

var (
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput is returned for a blank name, a malformed email or an
	// empty password.
	ErrInvalidInput = errors.New("name, a valid email and a password are required")
)

// Service registers and authenticates users.
type Service struct {
	users  api.UserStore
	cost   int
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCost sets the bcrypt cost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// New returns a Service over users.
func New(users api.UserStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{users: users, cost: bcrypt.DefaultCost, logger: logger.With("component", "auth")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (api.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || password == "" {
		return api.User{}, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return api.User{}, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return api.User{}, fmt.Errorf("hashing password: %w", err)
	}

	u := api.User{Name: name, Email: email, PasswordHash: hash}
	id, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return api.User{}, err
	}
	u.ID = id
	s.logger.Info("registered user", "email", email)
	return u, nil
}

// Login returns the user when password matches.
func (s *Service) Login(ctx context.Context, email, password string) (api.User, error) {
	u, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return api.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return api.User{}, ErrInvalidCredentials
	}
	return u, nil
}
