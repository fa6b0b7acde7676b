package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"fitchallenge/internal/events"
)

const channelPrefix = "fit_"

// Listener turns PostgreSQL NOTIFY payloads from the fit_<table> channels into
// change events.
type Listener struct {
	mu     sync.Mutex
	pql    *pq.Listener
	tables map[string]bool
	bus    *events.Bus
	log    *logrus.Entry
	done   chan struct{}
	once   sync.Once
}

func newListener(dsn string, log *logrus.Entry) *Listener {
	l := &Listener{
		tables: make(map[string]bool),
		bus:    events.NewBus(),
		log:    log,
		done:   make(chan struct{}),
	}
	l.pql = pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).Warn("listener connection event")
		}
	})
	go l.run()
	return l
}

func (l *Listener) run() {
	for {
		select {
		case <-l.done:
			return
		case n, ok := <-l.pql.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Reconnected; notifications may have been lost.
				l.resyncAll()
				continue
			}
			ev, err := decodeNotification(n)
			if err != nil {
				l.log.WithError(err).Warn("dropping notification")
				continue
			}
			if !l.bus.Publish(ev) {
				l.log.WithField("table", ev.Table).Debug("change buffer full, event dropped")
			}
		case <-time.After(90 * time.Second):
			go l.pql.Ping()
		}
	}
}

func (l *Listener) resyncAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for table := range l.tables {
		l.bus.Publish(events.ChangeEvent{Table: table, Op: events.OpUpdate, At: time.Now()})
	}
}

type notifyPayload struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id"`
}

func decodeNotification(n *pq.Notification) (events.ChangeEvent, error) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(n.Extra), &p); err != nil {
		return events.ChangeEvent{}, fmt.Errorf("decoding notification on %s: %w", n.Channel, err)
	}
	if p.Table == "" && len(n.Channel) > len(channelPrefix) {
		p.Table = n.Channel[len(channelPrefix):]
	}
	return events.ChangeEvent{Table: p.Table, Op: events.Op(p.Op), RecordID: p.ID, At: time.Now()}, nil
}

func (l *Listener) Listen(table string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tables[table] {
		return nil
	}
	if err := l.pql.Listen(channelPrefix + table); err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
		return fmt.Errorf("listening to %s: %w", table, err)
	}
	l.tables[table] = true
	l.log.WithField("table", table).Debug("listening")
	return nil
}

func (l *Listener) Unlisten(table string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.tables[table] {
		return nil
	}
	delete(l.tables, table)
	if err := l.pql.Unlisten(channelPrefix + table); err != nil && !errors.Is(err, pq.ErrChannelNotOpen) {
		return fmt.Errorf("unlistening from %s: %w", table, err)
	}
	l.log.WithField("table", table).Debug("unlistened")
	return nil
}

func (l *Listener) Events() <-chan events.ChangeEvent {
	return l.bus.Changes
}

func (l *Listener) Close() {
	l.once.Do(func() {
		close(l.done)
		l.pql.Close()
	})
}

func (d *DB) Listen(table string) error   { return d.listener.Listen(table) }
func (d *DB) Unlisten(table string) error { return d.listener.Unlisten(table) }

func (d *DB) Events() <-chan events.ChangeEvent { return d.listener.Events() }
