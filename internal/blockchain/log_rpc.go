package blockchain

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type LogFilter struct {
	FromBlock uint64
	ToBlock   uint64
	Address   string
	Topics    []string
}

type LogEntry struct {
	Topics          []string
	BlockNumber     uint64
	TransactionHash string
	Removed         bool
}

// LogRPCClient tails settlement-chain logs; the anchor indexer uses it to
// confirm archived events.
type LogRPCClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}

type JSONRPCLogClient struct {
	httpURL    string
	httpClient *http.Client
}

func NewJSONRPCLogClient(httpURL string) (*JSONRPCLogClient, error) {
	if strings.TrimSpace(httpURL) == "" {
		return nil, fmt.Errorf("missing SETTLEMENT_HTTP_RPC")
	}
	return &JSONRPCLogClient{
		httpURL:    strings.TrimSpace(httpURL),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (c *JSONRPCLogClient) BlockNumber(ctx context.Context) (uint64, error) {
	var out string
	if err := rpcCall(ctx, c.httpClient, c.httpURL, "eth_blockNumber", []any{}, &out); err != nil {
		return 0, err
	}
	return parseHexUint64(out)
}

func (c *JSONRPCLogClient) GetLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	reqFilter := map[string]any{
		"fromBlock": fmt.Sprintf("0x%x", filter.FromBlock),
		"toBlock":   fmt.Sprintf("0x%x", filter.ToBlock),
		"address":   filter.Address,
		"topics":    []any{filter.Topics},
	}
	var rawLogs []struct {
		Topics          []string `json:"topics"`
		BlockNumber     string   `json:"blockNumber"`
		TransactionHash string   `json:"transactionHash"`
		Removed         bool     `json:"removed"`
	}
	if err := rpcCall(ctx, c.httpClient, c.httpURL, "eth_getLogs", []any{reqFilter}, &rawLogs); err != nil {
		return nil, err
	}

	out := make([]LogEntry, 0, len(rawLogs))
	for _, item := range rawLogs {
		blockNum, err := parseHexUint64(item.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("invalid blockNumber in log: %w", err)
		}
		out = append(out, LogEntry{
			Topics:          item.Topics,
			BlockNumber:     blockNum,
			TransactionHash: item.TransactionHash,
			Removed:         item.Removed,
		})
	}
	return out, nil
}
