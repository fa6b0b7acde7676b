// Package memstore is an in-memory gateway used when no database is
// configured and in tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitchallenge/internal/events"
	"fitchallenge/internal/gateway"
	"fitchallenge/internal/models"
)

type account struct {
	user models.User
	hash string
}

type session struct {
	userID    string
	expiresAt time.Time
}

type Store struct {
	mu          sync.Mutex
	competitors map[string]*models.Competitor
	proofs      map[string]*models.Proof
	accounts    map[string]*account // by user id
	sessions    map[string]session
	listening   map[string]bool
	bus         *events.Bus
	now         func() time.Time
}

var _ gateway.Gateway = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		competitors: make(map[string]*models.Competitor),
		proofs:      make(map[string]*models.Proof),
		accounts:    make(map[string]*account),
		sessions:    make(map[string]session),
		listening:   make(map[string]bool),
		bus:         events.NewBus(),
		now:         time.Now,
	}
}

// SetClock replaces the clock used for created_at and session expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// notify must be called with s.mu held.
func (s *Store) notify(table string, op events.Op, id string) {
	if !s.listening[table] {
		return
	}
	s.bus.Publish(events.ChangeEvent{Table: table, Op: op, RecordID: id, At: s.now()})
}

func (s *Store) scoreOf(id string) int {
	total := 0
	for _, p := range s.proofs {
		if p.CompetitorID == id {
			total += p.Points
		}
	}
	return total
}

func (s *Store) QueryCompetitors(ctx context.Context, q gateway.CompetitorQuery) ([]models.Competitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]models.Competitor, 0, len(s.competitors))
	for _, c := range s.competitors {
		list = append(list, models.Competitor{ID: c.ID, Name: c.Name, Score: s.scoreOf(c.ID)})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if q.OrderBy == gateway.ByScore && list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (s *Store) GetCompetitor(ctx context.Context, id string) (*models.Competitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.competitors[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return &models.Competitor{ID: c.ID, Name: c.Name, Score: s.scoreOf(c.ID)}, nil
}

func (s *Store) InsertCompetitor(ctx context.Context, name string) (*models.Competitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &models.Competitor{ID: uuid.NewString(), Name: name}
	s.competitors[c.ID] = c
	s.notify(events.TableCompetitors, events.OpInsert, c.ID)
	cp := *c
	return &cp, nil
}

func (s *Store) UpdateCompetitor(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.competitors[id]
	if !ok {
		return gateway.ErrNotFound
	}
	c.Name = name
	s.notify(events.TableCompetitors, events.OpUpdate, id)
	return nil
}

// DeleteCompetitor removes the competitor and its proofs.
func (s *Store) DeleteCompetitor(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.competitors[id]; !ok {
		return gateway.ErrNotFound
	}
	delete(s.competitors, id)
	for pid, p := range s.proofs {
		if p.CompetitorID == id {
			delete(s.proofs, pid)
			s.notify(events.TableProofs, events.OpDelete, pid)
		}
	}
	s.notify(events.TableCompetitors, events.OpDelete, id)
	return nil
}

// withCompetitor copies p and attaches the competitor reference, if any.
func (s *Store) withCompetitor(p *models.Proof) models.Proof {
	cp := *p
	cp.Competitor = nil
	if c, ok := s.competitors[p.CompetitorID]; ok {
		cp.Competitor = &models.CompetitorRef{ID: c.ID, Name: c.Name}
	}
	return cp
}

func (s *Store) QueryProofs(ctx context.Context, q gateway.ProofQuery) ([]models.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]models.Proof, 0)
	for _, p := range s.proofs {
		if !q.From.IsZero() && p.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !p.CreatedAt.Before(q.To) {
			continue
		}
		list = append(list, s.withCompetitor(p))
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		if q.Newest {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	if q.Limit > 0 && len(list) > q.Limit {
		list = list[:q.Limit]
	}
	return list, nil
}

func (s *Store) GetProof(ctx context.Context, id string) (*models.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proofs[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	cp := s.withCompetitor(p)
	return &cp, nil
}

// InsertProof stores p. ID and CreatedAt are assigned when empty.
func (s *Store) InsertProof(ctx context.Context, p models.Proof) (*models.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.competitors[p.CompetitorID]; !ok {
		return nil, fmt.Errorf("inserting proof: competitor %s: %w", p.CompetitorID, gateway.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.Competitor = nil
	s.proofs[p.ID] = &p
	s.notify(events.TableProofs, events.OpInsert, p.ID)
	s.notify(events.TableCompetitors, events.OpUpdate, p.CompetitorID)
	cp := s.withCompetitor(&p)
	return &cp, nil
}

func (s *Store) UpdateProof(ctx context.Context, id string, patch models.ProofPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proofs[id]
	if !ok {
		return gateway.ErrNotFound
	}
	p.EventType = patch.EventType
	p.Points = patch.Points
	p.PhotoURL = patch.PhotoURL
	s.notify(events.TableProofs, events.OpUpdate, id)
	s.notify(events.TableCompetitors, events.OpUpdate, p.CompetitorID)
	return nil
}

func (s *Store) DeleteProof(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proofs[id]
	if !ok {
		return gateway.ErrNotFound
	}
	delete(s.proofs, id)
	s.notify(events.TableProofs, events.OpDelete, id)
	s.notify(events.TableCompetitors, events.OpUpdate, p.CompetitorID)
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, u models.User, passwordHash string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, a := range s.accounts {
		if a.user.Email == email {
			return nil, fmt.Errorf("creating account: user already registered: %w", gateway.ErrConflict)
		}
	}
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt = s.now()
	s.accounts[u.ID] = &account{user: u, hash: passwordHash}
	s.competitors[u.ID] = &models.Competitor{ID: u.ID, Name: u.DisplayName()}
	s.notify(events.TableCompetitors, events.OpInsert, u.ID)
	return &u, nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*models.User, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range s.accounts {
		if a.user.Email == email {
			u := a.user
			return &u, a.hash, nil
		}
	}
	return nil, "", gateway.ErrNotFound
}

// SetAdmin flags an existing account as admin.
func (s *Store) SetAdmin(id string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return gateway.ErrNotFound
	}
	a.user.IsAdmin = admin
	return nil
}

func (s *Store) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[userID]; !ok {
		return gateway.ErrNotFound
	}
	s.sessions[token] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) SessionUser(ctx context.Context, token string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, token)
		return nil, gateway.ErrNotFound
	}
	a, ok := s.accounts[sess.userID]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	u := a.user
	return &u, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// PurgeSessions deletes expired sessions and returns how many went.
func (s *Store) PurgeSessions(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for token, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *Store) Listen(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening[table] = true
	return nil
}

func (s *Store) Unlisten(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listening, table)
	return nil
}

func (s *Store) Events() <-chan events.ChangeEvent {
	return s.bus.Changes
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
