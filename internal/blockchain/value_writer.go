package blockchain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// RPCValueWriter settles transfers by sending marker transactions to the
// settlement contract over JSON-RPC.
type RPCValueWriter struct {
	httpURL        string
	fromAddress    string
	settlementAddr string
	gasLimit       uint64
	httpClient     *http.Client
}

func NewRPCValueWriter(httpURL, fromAddress, settlementAddr string, gasLimit uint64) (*RPCValueWriter, error) {
	if strings.TrimSpace(httpURL) == "" {
		return nil, fmt.Errorf("missing SETTLEMENT_HTTP_RPC")
	}
	if !addressPattern.MatchString(strings.TrimSpace(fromAddress)) {
		return nil, fmt.Errorf("invalid CHAIN_WRITER_FROM_ADDRESS")
	}
	if !addressPattern.MatchString(strings.TrimSpace(settlementAddr)) {
		return nil, fmt.Errorf("invalid SETTLEMENT_CONTRACT")
	}
	if gasLimit == 0 {
		gasLimit = 300000
	}
	return &RPCValueWriter{
		httpURL:        strings.TrimSpace(httpURL),
		fromAddress:    strings.TrimSpace(fromAddress),
		settlementAddr: strings.TrimSpace(settlementAddr),
		gasLimit:       gasLimit,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// Transfer moves amountMinor from one ledger account to another.
func (w *RPCValueWriter) Transfer(ctx context.Context, from, to string, amountMinor int64) (string, error) {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return "", fmt.Errorf("missing transfer party")
	}
	if amountMinor <= 0 {
		return "", fmt.Errorf("invalid transfer amount")
	}
	return w.sendMarker(ctx, "transfer_value", map[string]any{
		"from":         strings.TrimSpace(from),
		"to":           strings.TrimSpace(to),
		"amount_minor": amountMinor,
	})
}

// TransferBatch settles every leg in a single marker transaction, so the
// whole batch lands or fails together.
func (w *RPCValueWriter) TransferBatch(ctx context.Context, legs []TransferLeg) (string, error) {
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
	return w.sendMarker(ctx, "transfer_batch", map[string]any{
		"legs": legs,
	})
}

// AnchorEvent commits a digest of a journal event to the settlement contract
// so third parties can verify the archive was not rewritten.
func (w *RPCValueWriter) AnchorEvent(ctx context.Context, eventID uint64, eventName string, payload []byte) (string, error) {
	if eventID == 0 || strings.TrimSpace(eventName) == "" {
		return "", fmt.Errorf("invalid anchor event")
	}
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(payload)
	return w.sendMarker(ctx, "anchor_event", map[string]any{
		"event_id":     eventID,
		"name":         eventName,
		"payload_hash": "0x" + hex.EncodeToString(h.Sum(nil)),
	})
}

func (w *RPCValueWriter) sendMarker(ctx context.Context, action string, payload map[string]any) (string, error) {
	dataBytes, _ := json.Marshal(map[string]any{
		"action":  action,
		"payload": payload,
	})
	txObj := map[string]string{
		"from":  w.fromAddress,
		"to":    w.settlementAddr,
		"gas":   fmt.Sprintf("0x%x", w.gasLimit),
		"data":  "0x" + hex.EncodeToString(dataBytes),
		"value": "0x0",
	}

	var txHash string
	if err := rpcCall(ctx, w.httpClient, w.httpURL, "eth_sendTransaction", []any{txObj}, &txHash); err != nil {
		return "", err
	}
	if !strings.HasPrefix(txHash, "0x") {
		return "", fmt.Errorf("invalid tx hash response")
	}
	return txHash, nil
}
