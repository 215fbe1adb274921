package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/auth"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/blockchain"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/config"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/db"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/creditscore"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/federated"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/lenderportal"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/marketplace"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/http/handlers"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/jobs"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/observability"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/queues"
	postgresrepo "github.com/AritraDas07/Credit-Chain-Pro/internal/repository/postgres"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/server"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ws"
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

	writer, err := blockchain.NewWriterFromConfig(cfg)
	if err != nil {
		logger.Error("failed to build chain writer", "err", err)
		os.Exit(1)
	}

	rt := ledger.NewRuntime()
	registry := access.NewRegistry(rt, ledger.Identity(cfg.BootstrapAdmin))
	scoreService := creditscore.NewService(rt, registry)
	portalService := lenderportal.NewService(rt, registry, scoreService, writer, cfg.RegistrationFeeMinor, cfg.RequestFeeMinor)
	marketService := marketplace.NewService(rt, registry, writer, cfg.PlatformFeeBps, ledger.Identity(cfg.FeeRecipient))
	federatedService := federated.NewService(rt, registry, writer, cfg.MinStakeMinor)

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	devMode := cfg.Env != "prod" && cfg.Env != "production"

	eventRepo := postgresrepo.NewEventRepository(pool)

	var publisher jobs.Publisher
	if cfg.AMQPURL != "" {
		rabbit, err := queues.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey)
		if err != nil {
			logger.Error("failed to connect rabbitmq", "err", err)
			os.Exit(1)
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	archiver := jobs.NewArchiver(rt.Events(), eventRepo, publisher, writer)

	hub := ws.NewHub()
	notifier := ws.NewNotifier(rt.Events(), hub, cfg.WorkerPollInterval)

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:             pool,
		AuthHandler:        handlers.NewAuthHandler(jwtManager, cfg.JWTAccessTTL, devMode),
		ScoreHandler:       handlers.NewScoreHandler(scoreService),
		LenderHandler:      handlers.NewLenderHandler(portalService),
		MarketplaceHandler: handlers.NewMarketplaceHandler(marketService),
		FederatedHandler:   handlers.NewFederatedHandler(federatedService),
		AdminHandler:       handlers.NewAdminHandler(registry, eventRepo),
		WSHandler:          ws.NewHandler(hub),
		JWTManager:         jwtManager,
		Roles:              registry,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	go func() {
		interval := cfg.WorkerPollInterval
		if interval <= 0 {
			interval = 2 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				tickCtx, tickCancel := context.WithTimeout(context.Background(), 30*time.Second)
				err := archiver.RunOnce(tickCtx, cfg.WorkerBatchSize)
				tickCancel()
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("archiver run failed", "err", err)
				}
			}
		}
	}()

	go func() {
		if err := notifier.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("ws notifier stopped", "err", err)
		}
	}()

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	stopWorkers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}
