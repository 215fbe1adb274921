package blockchain

import (
	"context"
	"strings"
	"testing"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/config"
)

func TestWriterFactoryReturnsStubByDefault(t *testing.T) {
	for _, mode := range []string{"", "stub", "STUB"} {
		w, err := NewWriterFromConfig(config.Config{ChainWriterMode: mode})
		if err != nil {
			t.Fatalf("mode %q: unexpected error: %v", mode, err)
		}
		if _, ok := w.(*StubWriter); !ok {
			t.Fatalf("mode %q: expected stub writer", mode)
		}
	}
}

func TestWriterFactoryRPCModeRequiresConfig(t *testing.T) {
	_, err := NewWriterFromConfig(config.Config{ChainWriterMode: "rpc"})
	if err == nil {
		t.Fatalf("expected error for missing rpc writer config")
	}

	w, err := NewWriterFromConfig(config.Config{
		ChainWriterMode:        "rpc",
		SettlementHTTPRPC:      "http://localhost:8545",
		ChainWriterFromAddress: "0x1111111111111111111111111111111111111111",
		SettlementContract:     "0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.(*RPCValueWriter); !ok {
		t.Fatalf("expected rpc writer")
	}
}

func TestWriterFactoryRejectsUnknownMode(t *testing.T) {
	_, err := NewWriterFromConfig(config.Config{ChainWriterMode: "mainnet"})
	if err == nil {
		t.Fatalf("expected error for unknown writer mode")
	}
}

func TestStubWriterTransferValidatesInput(t *testing.T) {
	w := NewStubWriter()

	if _, err := w.Transfer(context.Background(), "", "portal:fees", 100); err == nil {
		t.Fatalf("expected error for missing sender")
	}
	if _, err := w.Transfer(context.Background(), "lender-1", "portal:fees", 0); err == nil {
		t.Fatalf("expected error for non-positive amount")
	}

	tx, err := w.Transfer(context.Background(), "lender-1", "portal:fees", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(tx, "0xstub") {
		t.Fatalf("unexpected tx hash: %s", tx)
	}
}

func TestStubWriterTransferBatchValidatesEveryLeg(t *testing.T) {
	w := NewStubWriter()

	if _, err := w.TransferBatch(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
	legs := []TransferLeg{
		{From: "buyer-1", To: "seller-1", AmountMinor: 9_750},
		{From: "buyer-1", To: "platform:fees", AmountMinor: 0},
	}
	if _, err := w.TransferBatch(context.Background(), legs); err == nil {
		t.Fatalf("expected error for non-positive leg amount")
	}

	legs[1].AmountMinor = 250
	tx, err := w.TransferBatch(context.Background(), legs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(tx, "0xstub") {
		t.Fatalf("unexpected tx hash: %s", tx)
	}
}

func TestStubWriterAnchorEventValidatesInput(t *testing.T) {
	w := NewStubWriter()

	if _, err := w.AnchorEvent(context.Background(), 0, "product_purchased", nil); err == nil {
		t.Fatalf("expected error for zero event id")
	}
	if _, err := w.AnchorEvent(context.Background(), 1, " ", nil); err == nil {
		t.Fatalf("expected error for empty event name")
	}

	tx, err := w.AnchorEvent(context.Background(), 1, "product_purchased", []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(tx, "0xstub") {
		t.Fatalf("unexpected tx hash: %s", tx)
	}
}

func TestRPCValueWriterRejectsBadAddresses(t *testing.T) {
	if _, err := NewRPCValueWriter("http://localhost:8545", "not-an-address", "0x2222222222222222222222222222222222222222", 0); err == nil {
		t.Fatalf("expected error for invalid from address")
	}
	if _, err := NewRPCValueWriter("http://localhost:8545", "0x1111111111111111111111111111111111111111", "", 0); err == nil {
		t.Fatalf("expected error for invalid settlement contract")
	}
}
