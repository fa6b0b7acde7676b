// Package auth signs users up and in with bcrypt-hashed passwords and
// opaque session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fitchallenge/internal/gateway"
	"fitchallenge/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUnauthenticated    = errors.New("not signed in")
	ErrForbidden          = errors.New("not allowed")
)

type Session struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type Service struct {
	accounts gateway.Accounts
	ttl      time.Duration
	isAdmin  func(email string) bool
	cost     int
	now      func() time.Time
}

// NewService returns a Service. isAdmin may be nil; admins are then only the
// users flagged in storage.
func NewService(accounts gateway.Accounts, ttl time.Duration, isAdmin func(string) bool) *Service {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &Service{
		accounts: accounts,
		ttl:      ttl,
		isAdmin:  isAdmin,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u, err := s.accounts.CreateAccount(ctx, models.User{
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}, string(hash))
	if err != nil {
		return nil, fmt.Errorf("signing up: %w", err)
	}
	return s.withRole(u), nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, hash, err := s.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess := &Session{
		Token:     uuid.NewString(),
		User:      s.withRole(u),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.accounts.CreateSession(ctx, sess.Token, u.ID, sess.ExpiresAt); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return sess, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthenticated
	}
	if err := s.accounts.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// CurrentUser resolves a session token. Unknown or expired tokens give
// ErrUnauthenticated.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	u, err := s.accounts.SessionUser(ctx, token)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	return s.withRole(u), nil
}

func (s *Service) withRole(u *models.User) *models.User {
	if s.isAdmin(u.Email) {
		u.IsAdmin = true
	}
	return u
}

// CanEditProof reports whether u may change or remove p.
func CanEditProof(u *models.User, p *models.Proof) bool {
	return u != nil && (u.IsAdmin || p.CompetitorID == u.ID)
}

// FriendlyError turns an authentication or write error into a message fit
// for a notice.
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, gateway.ErrConflict), strings.Contains(msg, "already registered"):
		return "This email is already registered. Try signing in."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrUnauthenticated):
		return "You need to sign in first."
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to do that."
	case errors.Is(err, gateway.ErrNotFound):
		return "Record not found."
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"):
		return "The server took too long to answer. Try again."
	}
	return "An error occurred."
}
