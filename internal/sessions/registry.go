// Package sessions keeps the live state of signed-in sessions: the realtime
// notice sinks attached to each one. Sessions are opened on sign-in and torn
// down on sign-out or expiry.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fitchallenge/internal/logging"
	"fitchallenge/internal/metrics"
	"fitchallenge/internal/mutation"
)

const (
	sinkBuffer    = 16
	sweepInterval = 5 * time.Minute
)

// Purger deletes expired sessions from persistent storage.
type Purger interface {
	PurgeSessions(ctx context.Context) (int64, error)
}

type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu     sync.Mutex
	sinks  map[chan mutation.Notice]bool
	closed bool
}

// Attach returns a channel of notices for this session and a func to detach
// it. The channel is closed on detach or when the session ends.
func (s *Session) Attach() (<-chan mutation.Notice, func()) {
	ch := make(chan mutation.Notice, sinkBuffer)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.sinks[ch] = true
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.sinks[ch] {
				delete(s.sinks, ch)
				close(ch)
			}
		})
	}
}

func (s *Session) publish(n mutation.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.sinks {
		select {
		case ch <- n:
		default:
			// skip sinks with full buffers
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.sinks {
		close(ch)
	}
	s.sinks = nil
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	purger   Purger
	log      *logrus.Entry
	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry starts the expiry sweep. purger may be nil.
func NewRegistry(purger Purger, log logrus.FieldLogger) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		purger:   purger,
		log:      logging.For(log, "Sessions"),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

func (r *Registry) Open(token, userID string, expiresAt time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[token]; ok {
		old.close()
	}
	s := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: r.now(),
		ExpiresAt: expiresAt,
		sinks:     make(map[chan mutation.Notice]bool),
	}
	r.sessions[token] = s
	metrics.Sessions.Set(float64(len(r.sessions)))
	return s
}

// Get returns the live session for token, or nil when it is unknown or
// expired.
func (r *Registry) Get(token string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[token]
	if s == nil || !r.now().Before(s.ExpiresAt) {
		return nil
	}
	return s
}

// Close tears the session down and closes its notice sinks.
func (r *Registry) Close(token string) {
	r.mu.Lock()
	s, ok := r.sessions[token]
	delete(r.sessions, token)
	metrics.Sessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Notifier returns a notifier bound to token. Notices for a session that is
// gone are dropped.
func (r *Registry) Notifier(token string) mutation.Notifier {
	return &notifier{reg: r, token: token}
}

func (r *Registry) publish(token string, n mutation.Notice) {
	if s := r.Get(token); s != nil {
		s.publish(n)
	}
}

func (r *Registry) sweepLoop() {
	defer close(r.done)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep(context.Background())
		}
	}
}

// Sweep removes expired sessions and asks the purger to do the same.
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	now := r.now()
	var expired []*Session
	for token, s := range r.sessions {
		if !now.Before(s.ExpiresAt) {
			expired = append(expired, s)
			delete(r.sessions, token)
		}
	}
	metrics.Sessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	if r.purger != nil {
		if n, err := r.purger.PurgeSessions(ctx); err != nil {
			r.log.WithError(err).Warn("purging sessions")
		} else if n > 0 {
			r.log.WithField("count", n).Debug("purged sessions")
		}
	}
	return len(expired)
}

// Stop ends the sweep goroutine and tears down every session.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		<-r.done
		r.mu.Lock()
		all := r.sessions
		r.sessions = make(map[string]*Session)
		r.mu.Unlock()
		for _, s := range all {
			s.close()
		}
	})
}

type notifier struct {
	reg   *Registry
	token string
}

func (n *notifier) Loading(msg string) string {
	id := uuid.NewString()
	n.reg.publish(n.token, mutation.Notice{ID: id, Kind: mutation.KindLoading, Message: msg})
	return id
}

func (n *notifier) Dismiss(id string) {
	n.reg.publish(n.token, mutation.Notice{ID: id, Kind: mutation.KindDismiss})
}

func (n *notifier) Success(msg string) {
	n.reg.publish(n.token, mutation.Notice{Kind: mutation.KindSuccess, Message: msg})
}

func (n *notifier) Error(msg string) {
	n.reg.publish(n.token, mutation.Notice{Kind: mutation.KindError, Message: msg})
}
