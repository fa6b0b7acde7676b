package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitchallenge/internal/events"
	"fitchallenge/internal/gateway"
	"fitchallenge/internal/models"
)

func TestStore_CompetitorScoreIsSumOfProofs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	ana, err := s.InsertCompetitor(ctx, "Ana")
	require.NoError(t, err)
	bia, err := s.InsertCompetitor(ctx, "Bia")
	require.NoError(t, err)

	_, err = s.InsertProof(ctx, models.Proof{CompetitorID: ana.ID, EventType: models.EventCardio, Points: 10})
	require.NoError(t, err)
	_, err = s.InsertProof(ctx, models.Proof{CompetitorID: ana.ID, EventType: models.EventCheatMeal, Points: -5})
	require.NoError(t, err)
	_, err = s.InsertProof(ctx, models.Proof{CompetitorID: bia.ID, EventType: models.EventWaterGoal, Points: 5})
	require.NoError(t, err)

	list, err := s.QueryCompetitors(ctx, gateway.CompetitorQuery{OrderBy: gateway.ByScore})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Equal(t, 5, list[0].Score)
	assert.Equal(t, 5, list[1].Score)

	got, err := s.GetCompetitor(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Score)
}

func TestStore_QueryProofsWindowAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c, _ := s.InsertCompetitor(ctx, "Ana")

	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		_, err := s.InsertProof(ctx, models.Proof{
			CompetitorID: c.ID,
			CreatedAt:    base.AddDate(0, 0, i),
			EventType:    models.EventCardio,
			Points:       10,
		})
		require.NoError(t, err)
	}

	window, err := s.QueryProofs(ctx, gateway.ProofQuery{From: base.AddDate(0, 0, 1), To: base.AddDate(0, 0, 3)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.True(t, window[0].CreatedAt.Before(window[1].CreatedAt))
	require.NotNil(t, window[0].Competitor)
	assert.Equal(t, "Ana", window[0].Competitor.Name)

	newest, err := s.QueryProofs(ctx, gateway.ProofQuery{Newest: true, Limit: 5})
	require.NoError(t, err)
	require.Len(t, newest, 5)
	assert.Equal(t, base.AddDate(0, 0, 6), newest[0].CreatedAt)
}

func TestStore_DeleteCompetitorCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c, _ := s.InsertCompetitor(ctx, "Ana")
	p, err := s.InsertProof(ctx, models.Proof{CompetitorID: c.ID, EventType: models.EventCardio, Points: 10})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCompetitor(ctx, c.ID))

	_, err = s.GetProof(ctx, p.ID)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCompetitor(ctx, c.ID), gateway.ErrNotFound)
}

func TestStore_InsertProofUnknownCompetitor(t *testing.T) {
	_, err := NewStore().InsertProof(context.Background(), models.Proof{CompetitorID: "nope", Points: 1})
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestStore_UpdateProof(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c, _ := s.InsertCompetitor(ctx, "Ana")
	p, _ := s.InsertProof(ctx, models.Proof{CompetitorID: c.ID, EventType: models.EventCardio, Points: 10})

	url := "http://photos/x.jpg"
	require.NoError(t, s.UpdateProof(ctx, p.ID, models.ProofPatch{EventType: models.EventWaterGoal, Points: 5, PhotoURL: &url}))

	got, err := s.GetProof(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventWaterGoal, got.EventType)
	assert.Equal(t, 5, got.Points)
	require.NotNil(t, got.PhotoURL)
	assert.Equal(t, url, *got.PhotoURL)

	assert.ErrorIs(t, s.UpdateProof(ctx, "missing", models.ProofPatch{}), gateway.ErrNotFound)
}

func TestStore_AccountsAndSessions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	u, err := s.CreateAccount(ctx, models.User{Email: "Ana@Example.com ", FirstName: "Ana", LastName: "Souza"}, "hash")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	c, err := s.GetCompetitor(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", c.Name)

	_, err = s.CreateAccount(ctx, models.User{Email: "ana@example.com"}, "hash")
	assert.ErrorIs(t, err, gateway.ErrConflict)

	found, hash, err := s.AccountByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", hash)

	require.NoError(t, s.CreateSession(ctx, "tok", u.ID, now.Add(time.Hour)))
	su, err := s.SessionUser(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, u.ID, su.ID)

	now = now.Add(2 * time.Hour)
	_, err = s.SessionUser(ctx, "tok")
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	require.NoError(t, s.CreateSession(ctx, "tok2", u.ID, now.Add(time.Hour)))
	require.NoError(t, s.DeleteSession(ctx, "tok2"))
	_, err = s.SessionUser(ctx, "tok2")
	assert.True(t, errors.Is(err, gateway.ErrNotFound))
}

func TestStore_ChangeEventsOnlyForListenedTables(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, _ = s.InsertCompetitor(ctx, "Ignored")
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event before Listen: %+v", ev)
	default:
	}

	require.NoError(t, s.Listen(events.TableCompetitors))
	c, _ := s.InsertCompetitor(ctx, "Ana")

	select {
	case ev := <-s.Events():
		assert.Equal(t, events.TableCompetitors, ev.Table)
		assert.Equal(t, events.OpInsert, ev.Op)
		assert.Equal(t, c.ID, ev.RecordID)
	default:
		t.Fatal("expected a change event")
	}

	require.NoError(t, s.Unlisten(events.TableCompetitors))
	_ = s.UpdateCompetitor(ctx, c.ID, "Ana B")
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event after Unlisten: %+v", ev)
	default:
	}
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore().QueryCompetitors(ctx, gateway.CompetitorQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
