package server

import (
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"fitchallenge/internal/analytics"
	"fitchallenge/internal/models"
)

type eventCatalogue struct {
	Gain []models.PointEvent `json:"gain"`
	Lose []models.PointEvent `json:"lose"`
}

func (s *Server) handleEventCatalogue(w http.ResponseWriter, r *http.Request) {
	s.ok(w, http.StatusOK, eventCatalogue{
		Gain: models.PointEvents[models.CategoryGain],
		Lose: models.PointEvents[models.CategoryLose],
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.Views.Leaderboard(r.Context())
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.ok(w, http.StatusOK, board)
}

// handleWeeklyLeaderboard serves the week containing ?week=YYYY-MM-DD, or the
// current week.
func (s *Server) handleWeeklyLeaderboard(w http.ResponseWriter, r *http.Request) {
	day := s.now().In(s.Loc)
	if q := r.URL.Query().Get("week"); q != "" {
		d, err := time.ParseInLocation("2006-01-02", q, s.Loc)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "week must be YYYY-MM-DD")
			return
		}
		day = d
	}
	board, err := s.Views.WeeklyLeaderboard(r.Context(), day)
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.ok(w, http.StatusOK, board)
}

func (s *Server) handleHallOfFame(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Views.HallOfFame(r.Context())
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.ok(w, http.StatusOK, entries)
}

// handleCalendar serves the perfect days of ?month=YYYY-MM, or the current
// month.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	month := s.now().In(s.Loc)
	if q := r.URL.Query().Get("month"); q != "" {
		m, err := time.ParseInLocation("2006-01", q, s.Loc)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = m
	}
	cal, err := s.Views.Calendar(r.Context(), month)
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.ok(w, http.StatusOK, cal)
}

type dashboard struct {
	Leaderboard []models.RankedCompetitor `json:"leaderboard"`
	Weekly      *analytics.WeeklyBoard    `json:"weekly"`
	HallOfFame  []models.HallOfFameEntry  `json:"hall_of_fame"`
	Recent      []models.Proof            `json:"recent_proofs"`
	Calendar    *analytics.CalendarMonth  `json:"calendar"`
}

// handleDashboard loads every view of the home page concurrently. The first
// view to fail decides the error.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.Loc)
	var d dashboard
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		d.Leaderboard, err = s.Views.Leaderboard(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Weekly, err = s.Views.WeeklyLeaderboard(ctx, now)
		return err
	})
	g.Go(func() (err error) {
		d.HallOfFame, err = s.Views.HallOfFame(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Recent, err = s.Views.RecentProofs(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Calendar, err = s.Views.Calendar(ctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		s.viewError(w, err)
		return
	}
	s.ok(w, http.StatusOK, d)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Gateway.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
