package main

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/config"
	"github.com/spec-kit/locate-ingest/internal/observability"
	"github.com/spec-kit/locate-ingest/internal/persistence"
	"github.com/spec-kit/locate-ingest/internal/repository"
	"github.com/spec-kit/locate-ingest/internal/service"
)

// One-shot retention sweep, meant to be invoked by an external scheduler
// (cron, systemd timer). Deletes aggregates whose legal start plus the
// retention window has passed; skips anything it cannot evaluate.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	aggregateRepo := repository.NewAggregateRepository(pg.PoolHandle())
	retention := service.NewRetentionService(aggregateRepo, cfg.Retention, metrics, logger)

	report, err := retention.Sweep(ctx, time.Now().UTC())
	if err != nil {
		logger.Fatal("retention sweep failed", zap.Error(err))
	}
	logger.Info("sweep finished",
		zap.Int("deleted", report.Deleted),
		zap.Int("skipped", report.Skipped),
		zap.Int("unparseable", report.Unparseable))
}
