package ledger

import (
	"sync"
	"time"
)

// Event is one entry of the append-only structured event stream. Fields hold
// the indexed attributes external observers key on.
type Event struct {
	ID     uint64         `json:"id"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
	At     time.Time      `json:"at"`
}

// EventLog is the in-process append-only event store. Consumers (the archive
// worker, the websocket notifier) poll with Since and track their own cursor,
// the same way the chain indexer tails logs.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
	nextID uint64
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) append(name string, fields map[string]any, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	if fields == nil {
		fields = map[string]any{}
	}
	l.events = append(l.events, Event{ID: l.nextID, Name: name, Fields: fields, At: at})
}

// Since returns up to limit events with id greater than lastID, in order.
func (l *EventLog) Since(lastID uint64, limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]Event, 0, limit)
	for _, ev := range l.events {
		if ev.ID <= lastID {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out
}

// LastID returns the id of the newest event, 0 when the log is empty.
func (l *EventLog) LastID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextID
}
