// Package bootstrap is the composition root. Construction and wiring live
// here so module code stays framework-agnostic.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	lifecycleengine "ballotcore/contexts/election-core/lifecycle-engine"
	postgresadapter "ballotcore/contexts/election-core/lifecycle-engine/adapters/postgres"
	"ballotcore/internal/platform/config"
	"ballotcore/internal/platform/db"
	"ballotcore/internal/platform/httpserver"
	"ballotcore/internal/platform/messaging"
)

type APIApp struct {
	server   *httpserver.Server
	engine   lifecycleengine.Module
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	engine       lifecycleengine.Module
	postgres     *db.Postgres
	sweepEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	engine, pg, err := buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(engine, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		engine:   engine,
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
	engine, pg, err := buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerApp{
		engine:       engine,
		postgres:     pg,
		sweepEnabled: cfg.EnableScheduleSweep,
		pollInterval: cfg.SchedulerSweep,
		logger:       logger,
	}, nil
}

func buildEngine(cfg config.Config, logger *slog.Logger) (lifecycleengine.Module, *db.Postgres, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return lifecycleengine.Module{}, nil, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return lifecycleengine.Module{}, nil, err
	}

	bus := messaging.NewBus(logger)
	repo := postgresadapter.NewRepository(pg.DB, cfg.VoteLimitMax, logger)
	engine := lifecycleengine.NewModule(lifecycleengine.Dependencies{
		Ledger:          repo,
		Publisher:       bus,
		Subscriber:      bus,
		Clock:           postgresadapter.SystemClock{},
		IDGen:           postgresadapter.UUIDGenerator{},
		VoteLimit:       cfg.VoteLimitMax,
		PublishTimeout:  cfg.PublishTimeout,
		ConsumerEnabled: cfg.EnablePhaseConsumer,
		Logger:          logger,
	})
	return engine, pg, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if err := a.engine.Consumer.Start(ctx); err != nil {
		return err
	}
	// Restore phase triggers lost to the last restart before serving votes.
	if err := a.engine.Reconciler.RunOnce(ctx); err != nil {
		a.logger.Warn("initial schedule reconcile failed",
			"event", "bootstrap_reconcile_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
	}
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.engine.Consumer.Start(ctx); err != nil {
		return err
	}
	if !w.sweepEnabled {
		w.logger.Info("schedule sweep disabled by feature flag",
			"event", "bootstrap_sweep_disabled",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.engine.Reconciler.RunOnce(ctx); err != nil {
			w.logger.Error("schedule reconcile sweep failed",
				"event", "bootstrap_sweep_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
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
