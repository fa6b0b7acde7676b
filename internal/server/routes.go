package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"fitchallenge/internal/config"
	"fitchallenge/internal/db"
	"fitchallenge/internal/gateway"
	"fitchallenge/internal/logging"
	"fitchallenge/internal/memstore"
	"fitchallenge/internal/metrics"
	"fitchallenge/internal/storage"
)

// Routes returns the HTTP handler for the whole API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.instrument(pattern, h))
	}

	handle("POST /api/auth/signup", s.handleSignUp)
	handle("POST /api/auth/signin", s.handleSignIn)
	handle("POST /api/auth/signout", s.requireUser(s.handleSignOut))
	handle("GET /api/auth/me", s.requireUser(s.handleMe))

	handle("GET /api/competitors", s.handleListCompetitors)
	handle("POST /api/competitors", s.requireAdmin(s.handleAddCompetitor))
	handle("PUT /api/competitors/{id}", s.requireAdmin(s.handleEditCompetitor))
	handle("DELETE /api/competitors/{id}", s.requireAdmin(s.handleDeleteCompetitor))

	handle("GET /api/proofs/recent", s.handleRecentProofs)
	handle("POST /api/proofs", s.requireUser(s.handleSubmitProof))
	handle("PUT /api/proofs/{id}", s.requireUser(s.handleEditProof))
	handle("DELETE /api/proofs/{id}", s.requireUser(s.handleDeleteProof))

	handle("GET /api/events", s.handleEventCatalogue)
	handle("GET /api/leaderboard", s.handleLeaderboard)
	handle("GET /api/leaderboard/weekly", s.handleWeeklyLeaderboard)
	handle("GET /api/hall-of-fame", s.handleHallOfFame)
	handle("GET /api/calendar", s.handleCalendar)
	handle("GET /api/dashboard", s.handleDashboard)

	handle("GET /ws", s.handleWebSocket)
	handle("GET /events", s.handleEvents)
	handle("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	if s.PhotoDir != "" {
		mux.Handle("GET /photos/", http.StripPrefix("/photos/", http.FileServer(http.Dir(s.PhotoDir))))
	}
	return mux
}

// OpenGateway connects to PostgreSQL and migrates it, or falls back to the
// in-memory store when no DATABASE_URL is set.
func OpenGateway(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (gateway.Gateway, error) {
	entry := logging.For(log, "DB")
	if cfg.DatabaseURL == "" {
		entry.Warn("DATABASE_URL not set, using in-memory store")
		return memstore.NewStore(), nil
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	entry.Info("migrations applied")
	return database, nil
}

// OpenBucket builds the configured photo storage.
func OpenBucket(cfg config.Config) (storage.Bucket, error) {
	switch cfg.StorageBackend {
	case "cloudinary":
		cld, err := storage.NewCloudinary(cfg.CloudinaryCloud, cfg.CloudinaryKey, cfg.CloudinarySecret)
		if err != nil {
			return nil, err
		}
		return cld, nil
	default:
		disk, err := storage.NewDisk(cfg.StorageDir, cfg.PublicBaseURL+"/photos")
		if err != nil {
			return nil, err
		}
		return disk, nil
	}
}

// Run serves the API until SIGINT or SIGTERM.
func Run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := OpenGateway(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening gateway: %w", err)
	}
	defer gw.Close()

	bucket, err := OpenBucket(cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	srv := New(gw, bucket, cfg, log)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.entry.Infof("listening on http://localhost:%s", cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	srv.entry.Info("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
