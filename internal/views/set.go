package views

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fitchallenge/internal/analytics"
	"fitchallenge/internal/broadcast"
	"fitchallenge/internal/events"
	"fitchallenge/internal/logging"
	"fitchallenge/internal/models"
	"fitchallenge/internal/querycache"
)

// Cache key roots. Parameterised views append a segment, e.g. "proofs/2024-01".
const (
	KeyCompetitors       = "competitors"
	KeyCompetitorsList   = "competitorsList"
	KeyWeeklyLeaderboard = "weeklyLeaderboard"
	KeyHallOfFame        = "hallOfFame"
	KeyProofs            = "proofs"
	KeyRecentProofs      = "recentProofs"
)

var errClosed = errors.New("views closed")

// DefaultMaxParamViews bounds how many parameterised views (one per month,
// week, ...) stay mounted. The least recently used idle one is unmounted first.
const DefaultMaxParamViews = 8

type mountedView struct {
	view  *View
	param bool
	refs  int
	used  uint64
}

// Set mounts views on first use. Fixed views stay mounted until Close;
// parameterised views are kept in a bounded LRU.
type Set struct {
	queries     *analytics.Queries
	cache       *querycache.Cache
	manager     *broadcast.Manager
	weeklyStale time.Duration
	log         *logrus.Entry

	// MaxParamViews bounds idle parameterised views. Set it before first use.
	MaxParamViews int

	mu      sync.Mutex
	mounted map[string]*mountedView
	clock   uint64
	closed  bool
}

func NewSet(q *analytics.Queries, cache *querycache.Cache, manager *broadcast.Manager, weeklyStale time.Duration, log logrus.FieldLogger) *Set {
	return &Set{
		queries:       q,
		cache:         cache,
		manager:       manager,
		weeklyStale:   weeklyStale,
		log:           logging.For(log, "Views"),
		MaxParamViews: DefaultMaxParamViews,
		mounted:       make(map[string]*mountedView),
	}
}

type spec struct {
	name      string
	key       string
	param     bool
	tables    []string
	staleTime time.Duration
	errMsg    string
}

// acquire returns the mounted view for sp, mounting it if needed. The view
// cannot be evicted until release is called.
func (s *Set) acquire(sp spec, fetch func(context.Context) (any, error)) (*View, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, &LoadError{View: sp.name, Message: sp.errMsg, Err: errClosed}
	}
	s.clock++
	if m, ok := s.mounted[sp.key]; ok {
		m.refs++
		m.used = s.clock
		return m.view, func() { s.release(m) }, nil
	}
	v := &View{
		Name:         sp.name,
		Key:          sp.key,
		Tables:       sp.tables,
		StaleTime:    sp.staleTime,
		ErrorMessage: sp.errMsg,
		fetch:        fetch,
		cache:        s.cache,
		manager:      s.manager,
		log:          s.log,
	}
	if err := v.Mount(); err != nil {
		return nil, nil, &LoadError{View: sp.name, Message: sp.errMsg, Err: err}
	}
	m := &mountedView{view: v, param: sp.param, refs: 1, used: s.clock}
	s.mounted[sp.key] = m
	s.log.WithField("key", sp.key).Debug("mounted")
	return v, func() { s.release(m) }, nil
}

func (s *Set) release(m *mountedView) {
	s.mu.Lock()
	m.refs--
	evicted := s.evictLocked()
	s.mu.Unlock()
	for _, v := range evicted {
		v.Unmount()
		s.log.WithField("key", v.Key).Debug("unmounted")
	}
}

// evictLocked drops idle parameterised views beyond the bound, oldest first.
// Their cache entries are dropped with them.
func (s *Set) evictLocked() []*View {
	var evicted []*View
	for {
		params, victimKey := 0, ""
		var victim *mountedView
		for key, m := range s.mounted {
			if !m.param {
				continue
			}
			params++
			if m.refs == 0 && (victim == nil || m.used < victim.used) {
				victim, victimKey = m, key
			}
		}
		if params <= s.MaxParamViews || victim == nil {
			return evicted
		}
		delete(s.mounted, victimKey)
		s.cache.Invalidate(victimKey)
		evicted = append(evicted, victim.view)
	}
}

func load[T any](ctx context.Context, s *Set, sp spec, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, release, err := s.acquire(sp, func(ctx context.Context) (any, error) { return fetch(ctx) })
	if err != nil {
		return zero, err
	}
	defer release()
	res, err := v.Load(ctx)
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

func (s *Set) Leaderboard(ctx context.Context) ([]models.RankedCompetitor, error) {
	return load(ctx, s, spec{
		name:   "leaderboard",
		key:    KeyCompetitors,
		tables: []string{events.TableCompetitors},
		errMsg: "Could not load the ranking.",
	}, s.queries.GetLeaderboard)
}

// WeeklyLeaderboard serves the week containing day.
func (s *Set) WeeklyLeaderboard(ctx context.Context, day time.Time) (*analytics.WeeklyBoard, error) {
	start := analytics.WeekStart(day, s.queries.Loc)
	return load(ctx, s, spec{
		name:      "weekly leaderboard",
		key:       querycache.Key(KeyWeeklyLeaderboard, start.Format(analytics.DayKeyLayout)),
		param:     true,
		tables:    []string{events.TableProofs, events.TableCompetitors},
		staleTime: s.weeklyStale,
		errMsg:    "Could not load the weekly ranking.",
	}, func(ctx context.Context) (*analytics.WeeklyBoard, error) {
		return s.queries.GetWeeklyLeaderboard(ctx, start)
	})
}

// HallOfFame counts the weeks completed before the current one. The key
// carries the current Monday so a new week starts from a fresh result.
func (s *Set) HallOfFame(ctx context.Context) ([]models.HallOfFameEntry, error) {
	before := analytics.WeekStart(s.queries.Now(), s.queries.Loc)
	return load(ctx, s, spec{
		name:   "hall of fame",
		key:    querycache.Key(KeyHallOfFame, before.Format(analytics.DayKeyLayout)),
		param:  true,
		tables: []string{events.TableProofs, events.TableCompetitors},
		errMsg: "Could not load the hall of fame.",
	}, func(ctx context.Context) ([]models.HallOfFameEntry, error) {
		return s.queries.GetHallOfFameBefore(ctx, before)
	})
}

// Calendar serves the perfect-day calendar of the month containing month.
// Competitor changes matter too: badges show name initials.
func (s *Set) Calendar(ctx context.Context, month time.Time) (*analytics.CalendarMonth, error) {
	m := month.In(s.queries.Loc)
	return load(ctx, s, spec{
		name:   "calendar",
		key:    querycache.Key(KeyProofs, m.Format("2006-01")),
		param:  true,
		tables: []string{events.TableProofs, events.TableCompetitors},
		errMsg: "Could not load the calendar.",
	}, func(ctx context.Context) (*analytics.CalendarMonth, error) {
		return s.queries.GetPerfectDays(ctx, m)
	})
}

func (s *Set) RecentProofs(ctx context.Context) ([]models.Proof, error) {
	return load(ctx, s, spec{
		name:   "recent proofs",
		key:    KeyRecentProofs,
		tables: []string{events.TableProofs, events.TableCompetitors},
		errMsg: "Could not load recent proofs.",
	}, s.queries.GetRecentProofs)
}

func (s *Set) Competitors(ctx context.Context) ([]models.Competitor, error) {
	return load(ctx, s, spec{
		name:   "competitor list",
		key:    KeyCompetitorsList,
		tables: []string{events.TableCompetitors},
		errMsg: "Could not load competitors.",
	}, s.queries.GetCompetitors)
}

// Mounted reports the number of mounted views.
func (s *Set) Mounted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mounted)
}

// Close unmounts every view.
func (s *Set) Close() {
	s.mu.Lock()
	s.closed = true
	all := s.mounted
	s.mounted = make(map[string]*mountedView)
	s.mu.Unlock()
	for _, m := range all {
		m.view.Unmount()
	}
}
