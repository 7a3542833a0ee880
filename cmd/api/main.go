package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/locate-ingest/internal/api/http"
	"github.com/spec-kit/locate-ingest/internal/api/http/handlers"
	"github.com/spec-kit/locate-ingest/internal/archive"
	"github.com/spec-kit/locate-ingest/internal/auth"
	"github.com/spec-kit/locate-ingest/internal/config"
	"github.com/spec-kit/locate-ingest/internal/ingest"
	"github.com/spec-kit/locate-ingest/internal/observability"
	"github.com/spec-kit/locate-ingest/internal/persistence"
	"github.com/spec-kit/locate-ingest/internal/queue"
	"github.com/spec-kit/locate-ingest/internal/repository"
	"github.com/spec-kit/locate-ingest/internal/service"
	"github.com/spec-kit/locate-ingest/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	blobs, err := archive.NewFilesystemStore(cfg.Archive, logger)
	if err != nil {
		logger.Fatal("failed to init raw payload archive", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	pool := pg.PoolHandle()
	ledgerRepo := repository.NewLedgerRepository(pool)
	aggregateRepo := repository.NewAggregateRepository(pool)

	events := queue.NewRedisQueue(redis, cfg.Queue)
	verifier := ingest.NewSignatureVerifier(cfg.Webhook, logger)

	intakeService := service.NewIntakeService(service.IntakeDependencies{
		Verifier: verifier,
		Ledger:   ledgerRepo,
		Blobs:    blobs,
		Events:   events,
		Metrics:  metrics,
		Logger:   logger,
	})
	aggregationService := service.NewAggregationService(aggregateRepo, metrics, logger)
	retentionService := service.NewRetentionService(aggregateRepo, cfg.Retention, metrics, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:        handlers.NewWebhookHandler(intakeService, metrics),
		Tickets:        handlers.NewTicketsHandler(aggregateRepo),
		Admin:          handlers.NewAdminHandler(retentionService, logger),
		AuthMiddleware: authMiddleware,
		Registry:       registry,
	})

	pipelineWorker := worker.NewPipelineWorker(events, aggregationService, cfg.Queue, logger)
	go pipelineWorker.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
