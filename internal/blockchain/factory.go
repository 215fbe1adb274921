package blockchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/config"
)

// Writer is the full settlement-chain surface: value transfers for the
// domain services plus event anchoring for the archive worker.
type Writer interface {
	Transfer(ctx context.Context, from, to string, amountMinor int64) (string, error)
	TransferBatch(ctx context.Context, legs []TransferLeg) (string, error)
	AnchorEvent(ctx context.Context, eventID uint64, eventName string, payload []byte) (string, error)
}

func NewWriterFromConfig(cfg config.Config) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ChainWriterMode)) {
	case "", "stub":
		return NewStubWriter(), nil
	case "rpc":
		return NewRPCValueWriter(cfg.SettlementHTTPRPC, cfg.ChainWriterFromAddress, cfg.SettlementContract, cfg.ChainTxGasLimit)
	default:
		return nil, fmt.Errorf("unknown CHAIN_WRITER_MODE %q", cfg.ChainWriterMode)
	}
}
