package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/http/handlers"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/jobs"
)

// EventRepository persists the ledger event journal. It backs the archive
// worker, the admin read surface, and the anchor-confirmation indexer.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) LastArchivedID(ctx context.Context) (uint64, error) {
	var last int64
	q := `SELECT COALESCE(MAX(event_id), 0) FROM ledger_events`
	if err := r.pool.QueryRow(ctx, q).Scan(&last); err != nil {
		return 0, err
	}
	return uint64(last), nil
}

func (r *EventRepository) Archive(ctx context.Context, records []jobs.ArchiveRecord) error {
	q := `
INSERT INTO ledger_events (event_id, event_name, payload, emitted_at, anchor_state)
VALUES ($1, $2, $3::jsonb, $4, 'none')
ON CONFLICT (event_id) DO NOTHING
`
	for _, rec := range records {
		if _, err := r.pool.Exec(ctx, q, int64(rec.EventID), rec.Name, rec.Payload, rec.EmittedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *EventRepository) RecordAnchor(ctx context.Context, eventID uint64, txHash string) error {
	q := `UPDATE ledger_events SET anchor_tx = $2, anchor_state = 'submitted' WHERE event_id = $1`
	_, err := r.pool.Exec(ctx, q, int64(eventID), txHash)
	return err
}

func (r *EventRepository) ConfirmAnchor(ctx context.Context, eventID uint64, txHash string, blockNumber uint64) error {
	q := `
UPDATE ledger_events
SET anchor_tx = $2, anchor_block = $3, anchor_state = 'confirmed'
WHERE event_id = $1
`
	_, err := r.pool.Exec(ctx, q, int64(eventID), txHash, int64(blockNumber))
	return err
}

func (r *EventRepository) ListSince(ctx context.Context, lastID uint64, limit int32) ([]handlers.ArchivedEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT event_id, event_name, payload::text, to_char(emitted_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
       COALESCE(anchor_tx, ''), anchor_state
FROM ledger_events
WHERE event_id > $1
ORDER BY event_id
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, int64(lastID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]handlers.ArchivedEvent, 0)
	for rows.Next() {
		var ev handlers.ArchivedEvent
		var eventID int64
		var payloadText string
		if err := rows.Scan(&eventID, &ev.Name, &payloadText, &ev.EmittedAt, &ev.AnchorTx, &ev.AnchorState); err != nil {
			return nil, err
		}
		ev.EventID = uint64(eventID)
		if err := json.Unmarshal([]byte(payloadText), &ev.Fields); err != nil {
			ev.Fields = map[string]any{}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EventRepository) GetIngestionCursor(ctx context.Context, key string) (uint64, bool, error) {
	var block int64
	q := `SELECT last_block FROM ingestion_cursors WHERE cursor_key = $1`
	err := r.pool.QueryRow(ctx, q, key).Scan(&block)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

func (r *EventRepository) SetIngestionCursor(ctx context.Context, key string, blockNumber uint64) error {
	q := `
INSERT INTO ingestion_cursors (cursor_key, last_block, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (cursor_key)
DO UPDATE SET last_block = EXCLUDED.last_block, updated_at = NOW()
`
	_, err := r.pool.Exec(ctx, q, key, int64(blockNumber))
	return err
}
