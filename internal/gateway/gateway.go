// Package gateway declares the data gateway the rest of the service talks to.
// internal/db implements it on PostgreSQL and internal/memstore in memory.
package gateway

import (
	"context"
	"errors"
	"time"

	"fitchallenge/internal/events"
	"fitchallenge/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

type CompetitorOrder int

const (
	ByName CompetitorOrder = iota
	ByScore
)

type CompetitorQuery struct {
	OrderBy CompetitorOrder
}

// ProofQuery selects proofs with From <= created_at < To. A zero bound is
// open. Newest orders by created_at descending, otherwise ascending.
type ProofQuery struct {
	From   time.Time
	To     time.Time
	Newest bool
	Limit  int
}

type Competitors interface {
	QueryCompetitors(ctx context.Context, q CompetitorQuery) ([]models.Competitor, error)
	GetCompetitor(ctx context.Context, id string) (*models.Competitor, error)
	InsertCompetitor(ctx context.Context, name string) (*models.Competitor, error)
	UpdateCompetitor(ctx context.Context, id, name string) error
	DeleteCompetitor(ctx context.Context, id string) error
}

type Proofs interface {
	QueryProofs(ctx context.Context, q ProofQuery) ([]models.Proof, error)
	GetProof(ctx context.Context, id string) (*models.Proof, error)
	InsertProof(ctx context.Context, p models.Proof) (*models.Proof, error)
	UpdateProof(ctx context.Context, id string, patch models.ProofPatch) error
	DeleteProof(ctx context.Context, id string) error
}

type Accounts interface {
	// CreateAccount stores the user and a competitor with the same id.
	CreateAccount(ctx context.Context, u models.User, passwordHash string) (*models.User, error)
	AccountByEmail(ctx context.Context, email string) (*models.User, string, error)
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	SessionUser(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
	PurgeSessions(ctx context.Context) (int64, error)
}

type Gateway interface {
	Competitors
	Proofs
	Accounts
	events.Source
	Ping(ctx context.Context) error
	Close() error
}
