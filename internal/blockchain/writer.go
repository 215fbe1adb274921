package blockchain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ValueWriter is the external value-transfer collaborator: it settles minor-
// unit amounts between ledger accounts on the settlement chain. A batch
// settles in one transaction: either every leg lands or none does.
type ValueWriter interface {
	Transfer(ctx context.Context, from, to string, amountMinor int64) (string, error)
	TransferBatch(ctx context.Context, legs []TransferLeg) (string, error)
}

// TransferLeg is one movement inside an atomic multi-leg settlement.
type TransferLeg struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountMinor int64  `json:"amount_minor"`
}

// StubWriter settles nothing and fabricates tx hashes. Local runs and tests.
type StubWriter struct{}

func NewStubWriter() *StubWriter {
	return &StubWriter{}
}

func (w *StubWriter) Transfer(_ context.Context, from, to string, amountMinor int64) (string, error) {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return "", fmt.Errorf("missing transfer party")
	}
	if amountMinor <= 0 {
		return "", fmt.Errorf("invalid transfer amount")
	}
	return fmt.Sprintf("0xstub%x", time.Now().UTC().UnixNano()), nil
}

func (w *StubWriter) TransferBatch(_ context.Context, legs []TransferLeg) (string, error) {
	if len(legs) == 0 {
		return "", fmt.Errorf("empty transfer batch")
	}
	for i, leg := range legs {
		if strings.TrimSpace(leg.From) == "" || strings.TrimSpace(leg.To) == "" {
			return "", fmt.Errorf("missing transfer party in leg %d", i)
		}
		if leg.AmountMinor <= 0 {
			return "", fmt.Errorf("invalid transfer amount in leg %d", i)
		}
	}
	return fmt.Sprintf("0xstub%x", time.Now().UTC().UnixNano()), nil
}

func (w *StubWriter) AnchorEvent(_ context.Context, eventID uint64, eventName string, _ []byte) (string, error) {
	if eventID == 0 || strings.TrimSpace(eventName) == "" {
		return "", fmt.Errorf("invalid anchor event")
	}
	return fmt.Sprintf("0xstub%x", time.Now().UTC().UnixNano()), nil
}
