package analytics

import (
	"context"
	"fmt"
	"time"

	"fitchallenge/internal/gateway"
	"fitchallenge/internal/models"
)

const RecentProofsLimit = 5

type Store interface {
	gateway.Competitors
	gateway.Proofs
}

// Queries fetches the windows each ranking needs and runs the pure
// aggregations over them.
type Queries struct {
	Store Store
	Loc   *time.Location
	Now   func() time.Time
}

func NewQueries(store Store, loc *time.Location) *Queries {
	if loc == nil {
		loc = time.Local
	}
	return &Queries{Store: store, Loc: loc, Now: time.Now}
}

func (q *Queries) GetLeaderboard(ctx context.Context) ([]models.RankedCompetitor, error) {
	competitors, err := q.Store.QueryCompetitors(ctx, gateway.CompetitorQuery{OrderBy: gateway.ByScore})
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	return Leaderboard(competitors), nil
}

func (q *Queries) GetCompetitors(ctx context.Context) ([]models.Competitor, error) {
	competitors, err := q.Store.QueryCompetitors(ctx, gateway.CompetitorQuery{OrderBy: gateway.ByName})
	if err != nil {
		return nil, fmt.Errorf("getting competitors: %w", err)
	}
	return competitors, nil
}

func (q *Queries) GetWeeklyLeaderboard(ctx context.Context, day time.Time) (*WeeklyBoard, error) {
	start, end := WeekRange(day, q.Loc)

	competitors, err := q.Store.QueryCompetitors(ctx, gateway.CompetitorQuery{OrderBy: gateway.ByName})
	if err != nil {
		return nil, fmt.Errorf("getting weekly competitors: %w", err)
	}
	proofs, err := q.Store.QueryProofs(ctx, gateway.ProofQuery{From: start, To: end})
	if err != nil {
		return nil, fmt.Errorf("getting weekly proofs: %w", err)
	}

	return &WeeklyBoard{
		WeekStart:   start,
		WeekEnd:     end,
		Label:       WeekLabel(start),
		CurrentWeek: start.Equal(WeekStart(q.Now(), q.Loc)),
		Entries:     WeeklyLeaderboard(competitors, proofs),
	}, nil
}

func (q *Queries) GetHallOfFame(ctx context.Context) ([]models.HallOfFameEntry, error) {
	return q.GetHallOfFameBefore(ctx, WeekStart(q.Now(), q.Loc))
}

// GetHallOfFameBefore counts the weeks that ended at or before before.
func (q *Queries) GetHallOfFameBefore(ctx context.Context, before time.Time) ([]models.HallOfFameEntry, error) {
	competitors, err := q.Store.QueryCompetitors(ctx, gateway.CompetitorQuery{OrderBy: gateway.ByName})
	if err != nil {
		return nil, fmt.Errorf("getting hall of fame competitors: %w", err)
	}
	proofs, err := q.Store.QueryProofs(ctx, gateway.ProofQuery{To: before})
	if err != nil {
		return nil, fmt.Errorf("getting hall of fame proofs: %w", err)
	}
	return HallOfFame(competitors, proofs, before, q.Loc), nil
}

func (q *Queries) GetPerfectDays(ctx context.Context, month time.Time) (*CalendarMonth, error) {
	start, end := MonthRange(month, q.Loc)

	proofs, err := q.Store.QueryProofs(ctx, gateway.ProofQuery{From: start, To: end})
	if err != nil {
		return nil, fmt.Errorf("getting calendar proofs: %w", err)
	}
	cal := PerfectDays(proofs, PerfectDayCriteria, q.Loc)
	return &CalendarMonth{
		Month:  start.Format("2006-01"),
		Days:   cal,
		Colors: BadgeColors(cal),
	}, nil
}

func (q *Queries) GetRecentProofs(ctx context.Context) ([]models.Proof, error) {
	proofs, err := q.Store.QueryProofs(ctx, gateway.ProofQuery{Newest: true, Limit: RecentProofsLimit})
	if err != nil {
		return nil, fmt.Errorf("getting recent proofs: %w", err)
	}
	return proofs, nil
}
