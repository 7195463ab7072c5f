package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stockflow-io/stockflow/internal/alerts"
	"github.com/stockflow-io/stockflow/internal/app"
	"github.com/stockflow-io/stockflow/internal/catalog"
	"github.com/stockflow-io/stockflow/internal/platform/cache"
	"github.com/stockflow-io/stockflow/internal/platform/db"
	"github.com/stockflow-io/stockflow/internal/stock"
	"github.com/stockflow-io/stockflow/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	directory := catalog.NewCache(catalog.NewRepository(pool), redisClient, cfg.CatalogCacheTTL, logger)

	alertsRepo := alerts.NewRepository(pool)
	// The worker only reads alerts; no dispatcher needed for delivery itself.
	alertsService := alerts.NewService(alertsRepo, nil, logger)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, directory, logger)

	pruneCron, err := jobs.NewMovementPruneCron()
	if err != nil {
		logger.Error("build prune cron", slog.Any("error", err))
		os.Exit(1)
	}
	pruneCron.Options = []asynq.Option{asynq.MaxRetry(3)}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAlertDispatch, Handler: jobs.NewAlertDispatchHandler(alertsService, logger)},
			{Type: jobs.TaskMovementPrune, Handler: jobs.NewMovementPruneHandler(stockService, logger)},
		},
		Cron: []jobs.CronRegistration{pruneCron},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
