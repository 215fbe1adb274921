package ledger

import (
	"sync"
	"time"
)

// Identity is the opaque, authenticated caller/subject reference every entity
// is keyed by. The HTTP layer derives it from the access token subject.
type Identity string

func (id Identity) IsZero() bool { return id == "" }

// Runtime substitutes the ledger execution environment: every operation runs
// as a serialized transaction under a single coarse lock, so state observed
// inside a transaction can never be partially written by another one.
// Services keep the all-or-nothing contract by validating everything before
// the first write.
type Runtime struct {
	mu       sync.Mutex
	now      func() time.Time
	seqs     map[string]uint64
	inFlight map[string]struct{}
	events   *EventLog
}

func NewRuntime() *Runtime {
	return &Runtime{
		now:      func() time.Time { return time.Now().UTC() },
		seqs:     map[string]uint64{},
		inFlight: map[string]struct{}{},
		events:   NewEventLog(),
	}
}

// SetClock overrides the transaction timestamp source. Test hook.
func (rt *Runtime) SetClock(now func() time.Time) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.now = now
}

func (rt *Runtime) Events() *EventLog { return rt.events }

// Tx is one serialized transaction. At is the transaction timestamp; all
// deadline comparisons (quota resets, round windows) use it, never the wall
// clock directly.
type Tx struct {
	rt *Runtime
	At time.Time
}

// Exec runs fn as a transaction. The lock is held for the whole call, which
// gives single-writer serialization across every component sharing this
// runtime; cross-component calls made inside fn observe the same transaction.
func (rt *Runtime) Exec(fn func(tx *Tx) error) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	tx := &Tx{rt: rt, At: rt.now()}
	return fn(tx)
}

// NextID returns the next value of a process-wide monotonic sequence. Ids are
// never reused; the first id of every sequence is 1.
func (tx *Tx) NextID(kind string) uint64 {
	tx.rt.seqs[kind]++
	return tx.rt.seqs[kind]
}

// PeekID returns the last assigned id of a sequence without advancing it.
func (tx *Tx) PeekID(kind string) uint64 {
	return tx.rt.seqs[kind]
}

// NonReentrant guards value-moving entry points against re-entry while a call
// is in flight, mirroring the host reentrancy-guard primitive the state
// machines were written against.
func (tx *Tx) NonReentrant(key string, fn func() error) error {
	if _, busy := tx.rt.inFlight[key]; busy {
		return State("reentrant_call")
	}
	tx.rt.inFlight[key] = struct{}{}
	defer delete(tx.rt.inFlight, key)
	return fn()
}

// Emit appends a structured event to the append-only log.
func (tx *Tx) Emit(name string, fields map[string]any) {
	tx.rt.events.append(name, fields, tx.At)
}
