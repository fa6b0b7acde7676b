// Package server exposes the challenge over a JSON API with websocket and
// server-sent-event change feeds.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fitchallenge/internal/analytics"
	"fitchallenge/internal/auth"
	"fitchallenge/internal/broadcast"
	"fitchallenge/internal/config"
	"fitchallenge/internal/gateway"
	"fitchallenge/internal/logging"
	"fitchallenge/internal/mutation"
	"fitchallenge/internal/querycache"
	"fitchallenge/internal/sessions"
	"fitchallenge/internal/storage"
	"fitchallenge/internal/views"
	"fitchallenge/internal/wshub"
)

type Server struct {
	Gateway  gateway.Gateway
	Auth     *auth.Service
	Sessions *sessions.Registry
	Cache    *querycache.Cache
	Manager  *broadcast.Manager
	Views    *views.Set
	Runner   *mutation.Runner
	Hub      *wshub.Hub
	Bucket   storage.Bucket

	Loc        *time.Location
	SessionTTL time.Duration
	PhotoDir   string // served under /photos/ when set

	entry     *logrus.Entry
	now       func() time.Time
	closed    chan struct{}
	closeOnce sync.Once
}

// New wires the application services around a gateway and a bucket.
func New(gw gateway.Gateway, bucket storage.Bucket, cfg config.Config, log logrus.FieldLogger) *Server {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	manager := broadcast.NewManager(gw, log)
	cache := querycache.New()
	queries := analytics.NewQueries(gw, loc)

	s := &Server{
		Gateway:    gw,
		Auth:       auth.NewService(gw, cfg.SessionTTL, cfg.IsAdmin),
		Sessions:   sessions.NewRegistry(gw, log),
		Cache:      cache,
		Manager:    manager,
		Views:      views.NewSet(queries, cache, manager, cfg.WeeklyStaleTime, log),
		Runner:     mutation.NewRunner(cache, auth.FriendlyError, log),
		Hub:        wshub.NewHub(manager, log),
		Bucket:     bucket,
		Loc:        loc,
		SessionTTL: cfg.SessionTTL,
		entry:      logging.For(log, "Server"),
		now:        time.Now,
		closed:     make(chan struct{}),
	}
	if cfg.StorageBackend == "disk" {
		s.PhotoDir = cfg.StorageDir
	}
	return s
}

// Close tears down views, sessions and the subscription manager. Open
// realtime connections end when their request contexts do.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.Views.Close()
		s.Sessions.Stop()
		s.Manager.Close()
	})
}

// done is cancelled when the server closes, for long-lived streams.
func (s *Server) done(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
