package server

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fitchallenge/internal/auth"
	"fitchallenge/internal/metrics"
	"fitchallenge/internal/models"
	"fitchallenge/internal/mutation"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// instrument logs each request and records it under its route pattern.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.entry.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
		}).Debug("request completed")
	}
}

// bearerToken reads "Authorization: Bearer <token>". Streams opened by
// browsers cannot set headers, so they may pass ?token= instead.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func streamToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// authenticate resolves token and makes sure the session is live in the
// registry, which it may not be after a restart.
func (s *Server) authenticate(ctx context.Context, token string) (*models.User, error) {
	u, err := s.Auth.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.Sessions.Get(token) == nil {
		s.Sessions.Open(token, u.ID, s.now().Add(s.SessionTTL))
	}
	return u, nil
}

func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		u, err := s.authenticate(r.Context(), token)
		if err != nil {
			s.fail(w, statusFor(err), auth.FriendlyError(err))
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = context.WithValue(ctx, tokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).IsAdmin {
			s.fail(w, http.StatusForbidden, auth.FriendlyError(auth.ErrForbidden))
			return
		}
		next(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

func currentToken(r *http.Request) string {
	t, _ := r.Context().Value(tokenKey).(string)
	return t
}

// notifier echoes notices into the response and, for signed-in requests,
// to the session's realtime clients.
func (s *Server) notifier(r *http.Request) (*mutation.Recorder, mutation.Notifier) {
	rec := &mutation.Recorder{}
	if token := currentToken(r); token != "" {
		return rec, mutation.Tee(rec, s.Sessions.Notifier(token))
	}
	return rec, rec
}
