package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"fitchallenge/internal/gateway"
	"fitchallenge/internal/models"
)

const uniqueViolation = "23505"

// CreateAccount inserts the user and its competitor in one transaction.
func (d *DB) CreateAccount(ctx context.Context, u models.User, passwordHash string) (*models.User, error) {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, is_admin, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.Email, u.FirstName, u.LastName, u.IsAdmin, passwordHash).Scan(&u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("creating account: user already registered: %w", gateway.ErrConflict)
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO competitors (id, name) VALUES ($1, $2)
	`, u.ID, u.DisplayName()); err != nil {
		return nil, fmt.Errorf("creating competitor for account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing account: %w", err)
	}
	return &u, nil
}

func (d *DB) AccountByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var (
		u    models.User
		hash string
	)
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, is_admin, created_at, password_hash
		FROM users WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsAdmin, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", gateway.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting account: %w", err)
	}
	return &u, hash, nil
}

func (d *DB) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (d *DB) SessionUser(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	err := d.conn.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.first_name, u.last_name, u.is_admin, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()
	`, token).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session user: %w", err)
	}
	return &u, nil
}

func (d *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := d.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeSessions deletes expired sessions and returns how many went.
func (d *DB) PurgeSessions(ctx context.Context) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}
