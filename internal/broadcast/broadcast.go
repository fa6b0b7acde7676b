// Package broadcast shares gateway change notifications between views and
// realtime clients. Subscriptions are reference counted per table: the
// gateway is asked to listen when the first subscriber arrives and to stop
// when the last one leaves.
package broadcast

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"fitchallenge/internal/events"
	"fitchallenge/internal/logging"
	"fitchallenge/internal/metrics"
)

const subscriberBuffer = 16

type Subscription struct {
	C <-chan events.ChangeEvent

	ch     chan events.ChangeEvent
	tables []string
	m      *Manager
	once   sync.Once
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.m.release(s) })
}

func (s *Subscription) Tables() []string {
	return append([]string(nil), s.tables...)
}

type Manager struct {
	mu     sync.Mutex
	source events.Source
	refs   map[string]int
	subs   map[string]map[*Subscription]bool
	log    *logrus.Entry
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

func NewManager(source events.Source, log logrus.FieldLogger) *Manager {
	m := &Manager{
		source: source,
		refs:   make(map[string]int),
		subs:   make(map[string]map[*Subscription]bool),
		log:    logging.For(log, "Broadcast"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Manager) run() {
	defer close(m.done)
	in := m.source.Events()
	for {
		select {
		case <-m.stop:
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			m.fanOut(ev)
		}
	}
}

func (m *Manager) fanOut(ev events.ChangeEvent) {
	metrics.ChangeEvents.WithLabelValues(ev.Table).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subs[ev.Table] {
		select {
		case sub.ch <- ev:
		default:
			metrics.ChangeEventsDropped.WithLabelValues(ev.Table).Inc()
		}
	}
}

// Subscribe returns a subscription receiving change events for the given
// tables. Duplicate table names are collapsed.
func (m *Manager) Subscribe(tables ...string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("subscribing: manager closed")
	}

	ch := make(chan events.ChangeEvent, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, m: m}

	seen := make(map[string]bool, len(tables))
	for _, table := range tables {
		if seen[table] {
			continue
		}
		seen[table] = true
		if err := m.acquire(table, sub); err != nil {
			for _, t := range sub.tables {
				m.drop(t, sub)
			}
			return nil, err
		}
		sub.tables = append(sub.tables, table)
	}
	return sub, nil
}

// acquire must be called with m.mu held.
func (m *Manager) acquire(table string, sub *Subscription) error {
	if m.refs[table] == 0 {
		if err := m.source.Listen(table); err != nil {
			return fmt.Errorf("subscribing to %s: %w", table, err)
		}
		m.log.WithField("table", table).Debug("listening")
	}
	m.refs[table]++
	if m.subs[table] == nil {
		m.subs[table] = make(map[*Subscription]bool)
	}
	m.subs[table][sub] = true
	metrics.Subscriptions.WithLabelValues(table).Set(float64(m.refs[table]))
	return nil
}

// drop must be called with m.mu held.
func (m *Manager) drop(table string, sub *Subscription) {
	if !m.subs[table][sub] {
		return
	}
	delete(m.subs[table], sub)
	m.refs[table]--
	metrics.Subscriptions.WithLabelValues(table).Set(float64(m.refs[table]))
	if m.refs[table] > 0 {
		return
	}
	delete(m.refs, table)
	delete(m.subs, table)
	if err := m.source.Unlisten(table); err != nil {
		m.log.WithError(err).WithField("table", table).Warn("unlisten failed")
		return
	}
	m.log.WithField("table", table).Debug("unlistened")
}

func (m *Manager) release(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, table := range sub.tables {
		m.drop(table, sub)
	}
	close(sub.ch)
}

// Refs reports the number of live subscriptions on table.
func (m *Manager) Refs(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs[table]
}

// Close stops the fan-out goroutine. Open subscriptions stop receiving but
// must still be closed by their owners.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	close(m.stop)
	<-m.done
}
