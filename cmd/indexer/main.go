package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/blockchain"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/config"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/db"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/indexer"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/observability"
	postgresrepo "github.com/AritraDas07/Credit-Chain-Pro/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rpcClient, err := blockchain.NewJSONRPCLogClient(cfg.SettlementHTTPRPC)
	if err != nil {
		logger.Error("failed to build rpc client", "err", err)
		os.Exit(1)
	}

	eventRepo := postgresrepo.NewEventRepository(pool)
	svc := indexer.NewAnchorService(eventRepo, rpcClient, cfg.SettlementContract, cfg.IndexerStartBlock, cfg.IndexerBlockBatch, cfg.IndexerConfirmations)

	interval := cfg.WorkerPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("anchor indexer started", "interval", interval.String(), "contract", cfg.SettlementContract)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("anchor indexer stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := svc.RunOnce(runCtx)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("anchor indexer run failed", "err", err)
			}
		}
	}
}
