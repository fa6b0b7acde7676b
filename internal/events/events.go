package events

import "time"

type Op string

const (
	OpInsert = Op("INSERT")
	OpUpdate = Op("UPDATE")
	OpDelete = Op("DELETE")
)

const (
	TableCompetitors = "competitors"
	TableProofs      = "proofs"
)

// ChangeEvent reports a write to a table. Subscribers do not filter on the
// payload; any event means "re-fetch".
type ChangeEvent struct {
	Table    string    `json:"table"`
	Op       Op        `json:"op"`
	RecordID string    `json:"id,omitempty"`
	At       time.Time `json:"at"`
}

// Source produces change events for the tables it has been asked to listen to.
type Source interface {
	Listen(table string) error
	Unlisten(table string) error
	Events() <-chan ChangeEvent
}

type Bus struct {
	Changes chan ChangeEvent
}

func NewBus() *Bus {
	return &Bus{
		Changes: make(chan ChangeEvent, 64),
	}
}

// Publish never blocks; when the buffer is full the event is dropped and the
// next change will trigger the re-fetch instead.
func (b *Bus) Publish(ev ChangeEvent) bool {
	select {
	case b.Changes <- ev:
		return true
	default:
		return false
	}
}
