package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/stockflow-io/stockflow/internal/alerts"
	"github.com/stockflow-io/stockflow/internal/app"
	"github.com/stockflow-io/stockflow/internal/catalog"
	"github.com/stockflow-io/stockflow/internal/fulfillment"
	"github.com/stockflow-io/stockflow/internal/orders"
	"github.com/stockflow-io/stockflow/internal/platform/cache"
	"github.com/stockflow-io/stockflow/internal/platform/db"
	"github.com/stockflow-io/stockflow/internal/stock"
	"github.com/stockflow-io/stockflow/internal/transactions"
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

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	directory := catalog.NewCache(catalog.NewRepository(pool), redisClient, cfg.CatalogCacheTTL, logger)
	catalogHandler := catalog.NewHandler(logger, directory, directory)

	alertsRepo := alerts.NewRepository(pool)
	alertsService := alerts.NewService(alertsRepo, jobClient, logger)
	alertsHandler := alerts.NewHandler(logger, alertsService)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, directory, logger)
	stockHandler := stock.NewHandler(logger, stockService)

	txRepo := transactions.NewRepository(pool)
	txHandler := transactions.NewHandler(logger, txRepo)

	ordersRepo := orders.NewRepository(pool)
	coordinator := fulfillment.NewCoordinator(stockService, ordersRepo, txRepo, alertsService, cfg.DefaultLocation, logger)
	ordersService := orders.NewService(ordersRepo, directory, coordinator, logger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		OrdersHandler:       ordersHandler,
		StockHandler:        stockHandler,
		TransactionsHandler: txHandler,
		AlertsHandler:       alertsHandler,
		CatalogHandler:      catalogHandler,
		JobHandler:          jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
