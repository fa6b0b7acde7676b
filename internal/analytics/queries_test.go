package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitchallenge/internal/analytics"
	"fitchallenge/internal/memstore"
	"fitchallenge/internal/models"
)

func seed(t *testing.T, s *memstore.Store, competitorID string, at time.Time, event string) {
	t.Helper()
	e, ok := models.EventByKey(event)
	require.True(t, ok, event)
	_, err := s.InsertProof(context.Background(), models.Proof{
		CompetitorID: competitorID,
		CreatedAt:    at,
		EventType:    e.Key,
		Points:       e.Points,
	})
	require.NoError(t, err)
}

func TestQueries_PerfectDaysFromStore(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStore()
	ana, err := s.InsertCompetitor(ctx, "Ana")
	require.NoError(t, err)

	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seed(t, s, ana.ID, day.Add(time.Duration(i)*time.Minute), models.EventPerfectMeal)
	}
	seed(t, s, ana.ID, day.Add(time.Hour), models.EventWeightTraining)
	seed(t, s, ana.ID, day.Add(2*time.Hour), models.EventCardio)
	seed(t, s, ana.ID, day.Add(3*time.Hour), models.EventWaterGoal)
	// Outside the month window.
	seed(t, s, ana.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), models.EventCheatMeal)

	q := analytics.NewQueries(s, time.UTC)
	month, err := q.GetPerfectDays(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "2024-01", month.Month)
	assert.Equal(t, []string{"A"}, month.Days["2024-01-10"])
	assert.Equal(t, "#3b82f6", month.Colors["A"])

	seed(t, s, ana.ID, day.Add(4*time.Hour), models.EventNoTrainingDay)
	month, err = q.GetPerfectDays(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, month.Days)
}

func TestQueries_WeeklyAndHallOfFame(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStore()
	ana, _ := s.InsertCompetitor(ctx, "Ana")
	bia, _ := s.InsertCompetitor(ctx, "Bia")

	lastWeek := time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)
	thisWeek := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)
	seed(t, s, ana.ID, lastWeek, models.EventCardio)
	seed(t, s, bia.ID, thisWeek, models.EventWeightTraining)
	seed(t, s, bia.ID, thisWeek, models.EventWaterGoal)

	q := analytics.NewQueries(s, time.UTC)
	q.Now = func() time.Time { return thisWeek }

	board, err := q.GetWeeklyLeaderboard(ctx, thisWeek)
	require.NoError(t, err)
	assert.True(t, board.CurrentWeek)
	assert.Equal(t, "15/01 - 21/01/2024", board.Label)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "Bia", board.Entries[0].Name)
	assert.Equal(t, 15, board.Entries[0].Score)
	assert.Equal(t, 0, board.Entries[1].Score)

	prev, err := q.GetWeeklyLeaderboard(ctx, lastWeek)
	require.NoError(t, err)
	assert.False(t, prev.CurrentWeek)
	assert.Equal(t, "Ana", prev.Entries[0].Name)

	hof, err := q.GetHallOfFame(ctx)
	require.NoError(t, err)
	require.Len(t, hof, 2)
	assert.Equal(t, "Ana", hof[0].Name)
	assert.Equal(t, 1, hof[0].Wins)
	assert.Equal(t, 0, hof[1].Wins)
}

func TestQueries_LeaderboardAndRecent(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStore()
	ana, _ := s.InsertCompetitor(ctx, "Ana")
	bia, _ := s.InsertCompetitor(ctx, "Bia")

	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		seed(t, s, bia.ID, base.Add(time.Duration(i)*time.Hour), models.EventPerfectMeal)
	}
	seed(t, s, ana.ID, base, models.EventCheatMeal)

	q := analytics.NewQueries(s, time.UTC)
	board, err := q.GetLeaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bia", board[0].Name)
	assert.Equal(t, 6, board[0].Score)
	assert.Equal(t, -5, board[1].Score)

	recent, err := q.GetRecentProofs(ctx)
	require.NoError(t, err)
	require.Len(t, recent, analytics.RecentProofsLimit)
	assert.Equal(t, base.Add(5*time.Hour), recent[0].CreatedAt)

	list, err := q.GetCompetitors(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", list[0].Name)
}
