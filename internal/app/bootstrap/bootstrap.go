package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	rentdistribution "rentshare/contexts/asset-finance/rent-distribution-service"
	rentpostgres "rentshare/contexts/asset-finance/rent-distribution-service/adapters/postgres"
	rentworkers "rentshare/contexts/asset-finance/rent-distribution-service/application/workers"
	unitledger "rentshare/contexts/asset-finance/unit-ledger-service"
	unitpostgres "rentshare/contexts/asset-finance/unit-ledger-service/adapters/postgres"
	"rentshare/internal/platform/config"
	"rentshare/internal/platform/db"
	"rentshare/internal/platform/httpserver"
	"rentshare/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  rentworkers.OutboxRelay
	relayEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	unitRepo := unitpostgres.NewRepository(pg.DB, logger)
	unitModule := unitledger.NewModule(unitledger.Dependencies{
		Repository:    unitRepo,
		Tx:            unitRepo,
		MintAuthority: cfg.MintAuthorityID,
		Logger:        logger,
	})

	rentRepo := rentpostgres.NewRepository(pg.DB, logger)
	registryModule := rentdistribution.NewModule(rentdistribution.Dependencies{
		Log:              rentRepo,
		Holders:          rentRepo,
		Stats:            rentRepo,
		Units:            unitModule.Service,
		Custody:          rentRepo,
		Outbox:           rentRepo,
		Tx:               rentRepo,
		Clock:            rentpostgres.SystemClock{},
		IDGen:            rentpostgres.UUIDGenerator{},
		DepositAuthority: cfg.DepositAuthorityID,
		Logger:           logger,
	})

	// The unit ledger refuses balance mutations until the checkpoint
	// hook is registered.
	unitModule.Service.RegisterObserver(registryModule.Service)

	server := httpserver.New(registryModule, unitModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	rentRepo := rentpostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: rentworkers.OutboxRelay{
			Outbox:    rentRepo,
			Publisher: kafka,
			Clock:     rentpostgres.SystemClock{},
			Topic:     "rent.distribution",
			BatchSize: 100,
			Logger:    logger,
		},
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"relay_enabled", w.relayEnabled,
	)

	for {
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
