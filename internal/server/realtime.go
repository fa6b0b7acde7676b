package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"fitchallenge/internal/events"
	"fitchallenge/internal/metrics"
	"fitchallenge/internal/mutation"
	"fitchallenge/internal/wshub"
)

// sessionNotices attaches to the live session of a signed-in stream. Both
// return values are nil-safe for anonymous streams.
func (s *Server) sessionNotices(r *http.Request) (<-chan mutation.Notice, func()) {
	token := streamToken(r)
	if token == "" {
		return nil, func() {}
	}
	if _, err := s.authenticate(r.Context(), token); err != nil {
		return nil, func() {}
	}
	sess := s.Sessions.Get(token)
	if sess == nil {
		return nil, func() {}
	}
	return sess.Attach()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.entry.WithError(err).Warn("websocket accept")
		return
	}
	defer conn.CloseNow()

	notices, detach := s.sessionNotices(r)
	defer detach()

	ctx, cancel := s.done(r.Context())
	defer cancel()

	client := wshub.NewClient(uuid.NewString(), conn)
	s.entry.WithField("client", client.ID).Debug("websocket connected")
	s.Hub.Serve(ctx, client, notices)
	s.entry.WithField("client", client.ID).Debug("websocket closed")
}

// handleEvents streams change events for ?tables=a,b as server-sent events,
// plus the session's notices when a token is given.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var tables []string
	for _, t := range strings.Split(r.URL.Query().Get("tables"), ",") {
		t = strings.TrimSpace(t)
		switch t {
		case "":
			continue
		case events.TableCompetitors, events.TableProofs:
			tables = append(tables, t)
		default:
			s.fail(w, http.StatusBadRequest, "unknown table "+t)
			return
		}
	}
	if len(tables) == 0 {
		tables = []string{events.TableCompetitors, events.TableProofs}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := s.Manager.Subscribe(tables...)
	if err != nil {
		s.entry.WithError(err).Warn("sse subscribe")
		s.fail(w, http.StatusServiceUnavailable, "Could not subscribe to changes.")
		return
	}
	defer sub.Close()

	notices, detach := s.sessionNotices(r)
	defer detach()

	metrics.RealtimeClients.WithLabelValues("sse").Inc()
	defer metrics.RealtimeClients.WithLabelValues("sse").Dec()

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := s.done(r.Context())
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			writeEvent(w, "change", ev)
			flusher.Flush()
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			writeEvent(w, "notice", n)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
