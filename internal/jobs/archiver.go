package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

// anchoredEvents names the journal events that move value between accounts;
// only these get a settlement-chain anchor in addition to the archive row.
var anchoredEvents = map[string]struct{}{
	"lender_registered":        {},
	"credit_request_processed": {},
	"batch_processed":          {},
	"fees_withdrawn":           {},
	"product_purchased":        {},
	"round_started":            {},
	"update_submitted":         {},
	"stake_slashed":            {},
	"rewards_distributed":      {},
	"emergency_withdrawal":     {},
}

type ArchiveRecord struct {
	EventID   uint64
	Name      string
	Payload   []byte
	EmittedAt time.Time
}

// EventSource is the in-process journal the archiver tails.
type EventSource interface {
	Since(lastID uint64, limit int) []ledger.Event
}

type ArchiveRepository interface {
	LastArchivedID(ctx context.Context) (uint64, error)
	Archive(ctx context.Context, records []ArchiveRecord) error
	RecordAnchor(ctx context.Context, eventID uint64, txHash string) error
}

type Publisher interface {
	PublishEvent(eventName string, body []byte) error
}

type AnchorWriter interface {
	AnchorEvent(ctx context.Context, eventID uint64, eventName string, payload []byte) (string, error)
}

// Archiver drains the ledger event journal into Postgres, fans events out to
// the message broker, and anchors value-movement events on the settlement
// chain. Publish and anchor failures retry with backoff; the archive row is
// written first so no event is ever lost.
type Archiver struct {
	source       EventSource
	repo         ArchiveRepository
	publisher    Publisher
	anchorer     AnchorWriter
	cursor       uint64
	cursorLoaded bool

	maxAttempts  int32
	now          func() time.Time
	retryBackoff func(attempt int32) time.Duration
	pending      map[uint64]*pendingEvent
}

type pendingEvent struct {
	record      ArchiveRecord
	needPublish bool
	needAnchor  bool
	attempts    int32
	availableAt time.Time
}

func NewArchiver(source EventSource, repo ArchiveRepository, publisher Publisher, anchorer AnchorWriter) *Archiver {
	return &Archiver{
		source:      source,
		repo:        repo,
		publisher:   publisher,
		anchorer:    anchorer,
		maxAttempts: 5,
		now:         func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*15) * time.Second
		},
		pending: map[uint64]*pendingEvent{},
	}
}

func (a *Archiver) RunOnce(ctx context.Context, batchSize int32) error {
	if !a.cursorLoaded {
		last, err := a.repo.LastArchivedID(ctx)
		if err != nil {
			return err
		}
		a.cursor = last
		a.cursorLoaded = true
	}

	events := a.source.Since(a.cursor, int(batchSize))
	if len(events) > 0 {
		records := make([]ArchiveRecord, 0, len(events))
		for _, ev := range events {
			payload, err := json.Marshal(ev.Fields)
			if err != nil {
				payload = []byte("{}")
			}
			records = append(records, ArchiveRecord{
				EventID:   ev.ID,
				Name:      ev.Name,
				Payload:   payload,
				EmittedAt: ev.At,
			})
		}
		if err := a.repo.Archive(ctx, records); err != nil {
			return err
		}
		for _, rec := range records {
			_, anchor := anchoredEvents[rec.Name]
			a.pending[rec.EventID] = &pendingEvent{
				record:      rec,
				needPublish: a.publisher != nil,
				needAnchor:  anchor && a.anchorer != nil,
			}
			if rec.EventID > a.cursor {
				a.cursor = rec.EventID
			}
		}
	}

	return a.drainPending(ctx)
}

func (a *Archiver) drainPending(ctx context.Context) error {
	now := a.now()
	for id, pe := range a.pending {
		if pe.availableAt.After(now) {
			continue
		}
		if err := a.processPending(ctx, pe); err != nil {
			pe.attempts++
			if pe.attempts >= a.maxAttempts {
				delete(a.pending, id)
				continue
			}
			pe.availableAt = now.Add(a.retryBackoff(pe.attempts))
			continue
		}
		delete(a.pending, id)
	}
	return nil
}

func (a *Archiver) processPending(ctx context.Context, pe *pendingEvent) error {
	if pe.needPublish {
		envelope, _ := json.Marshal(map[string]any{
			"event_id":   pe.record.EventID,
			"name":       pe.record.Name,
			"fields":     json.RawMessage(pe.record.Payload),
			"emitted_at": pe.record.EmittedAt.UTC().Format(time.RFC3339),
		})
		if err := a.publisher.PublishEvent(pe.record.Name, envelope); err != nil {
			return err
		}
		pe.needPublish = false
	}

	if pe.needAnchor {
		txHash, err := a.anchorer.AnchorEvent(ctx, pe.record.EventID, pe.record.Name, pe.record.Payload)
		if err != nil {
			return err
		}
		if err := a.repo.RecordAnchor(ctx, pe.record.EventID, txHash); err != nil {
			return err
		}
		pe.needAnchor = false
	}

	return nil
}

// PendingCount reports how many events are still awaiting publish or anchor.
func (a *Archiver) PendingCount() int {
	return len(a.pending)
}
