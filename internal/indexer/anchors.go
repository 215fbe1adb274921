package indexer

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/blockchain"
)

const anchorCursorKey = "indexer.settlement.last_block"

// AnchorRepository is the persistence side of anchor confirmation: the
// ingestion cursor plus the archived-event rows whose anchors we confirm.
type AnchorRepository interface {
	GetIngestionCursor(ctx context.Context, key string) (uint64, bool, error)
	SetIngestionCursor(ctx context.Context, key string, blockNumber uint64) error
	ConfirmAnchor(ctx context.Context, eventID uint64, txHash string, blockNumber uint64) error
}

// AnchorService walks settlement-chain logs and marks archived ledger events
// whose anchor transactions landed with enough confirmations.
type AnchorService struct {
	repo          AnchorRepository
	rpc           blockchain.LogRPCClient
	contractAddr  string
	startBlock    uint64
	blockBatch    uint64
	confirmations uint64
}

func NewAnchorService(repo AnchorRepository, rpc blockchain.LogRPCClient, contractAddr string, startBlock, blockBatch, confirmations uint64) *AnchorService {
	if blockBatch == 0 {
		blockBatch = 500
	}
	return &AnchorService{
		repo:          repo,
		rpc:           rpc,
		contractAddr:  strings.TrimSpace(contractAddr),
		startBlock:    startBlock,
		blockBatch:    blockBatch,
		confirmations: confirmations,
	}
}

func (s *AnchorService) RunOnce(ctx context.Context) error {
	latest, err := s.rpc.BlockNumber(ctx)
	if err != nil {
		return err
	}

	if latest < s.confirmations {
		return nil
	}
	safeHead := latest - s.confirmations

	last, ok, err := s.repo.GetIngestionCursor(ctx, anchorCursorKey)
	if err != nil {
		return err
	}
	var fromBlock uint64
	if ok {
		fromBlock = last + 1
	} else {
		fromBlock = s.startBlock
	}
	if fromBlock > safeHead {
		return nil
	}

	toBlock := minUint64(safeHead, fromBlock+s.blockBatch-1)
	logs, err := s.rpc.GetLogs(ctx, blockchain.LogFilter{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Address:   s.contractAddr,
		Topics:    []string{topicEventAnchored},
	})
	if err != nil {
		return err
	}

	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		eventID, ok := decodeAnchorLog(lg)
		if !ok {
			continue
		}
		if err := s.repo.ConfirmAnchor(ctx, eventID, strings.ToLower(lg.TransactionHash), lg.BlockNumber); err != nil {
			return err
		}
	}

	return s.repo.SetIngestionCursor(ctx, anchorCursorKey, toBlock)
}

var topicEventAnchored = eventTopic("EventAnchored(uint256,bytes32)")

// decodeAnchorLog pulls the journal event id out of the first indexed topic.
func decodeAnchorLog(log blockchain.LogEntry) (uint64, bool) {
	if len(log.Topics) < 2 {
		return 0, false
	}
	if !strings.EqualFold(log.Topics[0], topicEventAnchored) {
		return 0, false
	}
	word := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(log.Topics[1])), "0x")
	n, ok := new(big.Int).SetString(word, 16)
	if !ok || !n.IsUint64() || n.Uint64() == 0 {
		return 0, false
	}
	return n.Uint64(), true
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func eventTopic(signature string) string {
	hash := sha3.NewLegacyKeccak256()
	_, _ = hash.Write([]byte(signature))
	return "0x" + hex.EncodeToString(hash.Sum(nil))
}
