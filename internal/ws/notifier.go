package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

// EventSource is the in-process journal the notifier tails for realtime
// fan-out. The notifier keeps its own cursor, independent of the archiver's.
type EventSource interface {
	Since(lastID uint64, limit int) []ledger.Event
}

type Notifier struct {
	source       EventSource
	hub          *Hub
	pollInterval time.Duration
	lastID       uint64
}

func NewNotifier(source EventSource, hub *Hub, pollInterval time.Duration) *Notifier {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Notifier{source: source, hub: hub, pollInterval: pollInterval}
}

func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n.tick()
		}
	}
}

func (n *Notifier) tick() {
	events := n.source.Since(n.lastID, 100)
	for _, ev := range events {
		if ev.ID > n.lastID {
			n.lastID = ev.ID
		}
		for _, topic := range eventTopics(ev) {
			payload, err := json.Marshal(map[string]any{
				"event": ev.Name,
				"data":  ev.Fields,
				"at":    ev.At.UTC().Format(time.RFC3339),
			})
			if err != nil {
				continue
			}
			n.hub.Publish(topic, payload)
		}
	}
}

func eventTopics(ev ledger.Event) []string {
	switch ev.Name {
	case "score_updated", "score_factors_updated", "consent_updated",
		"lender_access_granted", "lender_access_revoked":
		identity := fieldString(ev.Fields, "identity")
		if identity == "" {
			return nil
		}
		return []string{"scores:" + identity}

	case "credit_request_processed", "batch_processed", "api_access_granted":
		lenderID := fieldString(ev.Fields, "lender")
		if lenderID == "" {
			return nil
		}
		return []string{"lender:requests:" + lenderID}

	case "product_purchased", "review_submitted", "product_price_updated", "product_deactivated":
		productID := fieldString(ev.Fields, "product_id")
		if productID == "" {
			return nil
		}
		return []string{"marketplace:product:" + productID}

	case "round_started", "update_submitted", "update_validated",
		"stake_slashed", "model_aggregated", "rewards_distributed":
		return []string{"federated:rounds"}

	default:
		return nil
	}
}

func fieldString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
