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

	"github.com/austral-erp/austral-erp/internal/app"
	"github.com/austral-erp/austral-erp/internal/ledger"
	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/drafts"
	"github.com/austral-erp/austral-erp/internal/ledger/importer"
	"github.com/austral-erp/austral-erp/internal/ledger/posting"
	"github.com/austral-erp/austral-erp/internal/observability"
	"github.com/austral-erp/austral-erp/internal/platform/cache"
	"github.com/austral-erp/austral-erp/internal/platform/db"
	"github.com/austral-erp/austral-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

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
		logger.Warn("redis unavailable, catalog caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogCache := catalog.NewCache(redisClient, cfg.CatalogTTL)
	catalogService := catalog.NewService(catalog.NewSource(pool), catalogCache, logger)

	draftRepo := drafts.NewRepository(pool)
	draftService := drafts.NewService(draftRepo, catalogService, logger)

	postingRepo := posting.NewRepository(pool)
	auditLogger := posting.NewAuditLogger(pool)
	coordinator := posting.NewCoordinator(postingRepo, draftService, catalogService, auditLogger, logger)

	pipeline := importer.NewPipeline(draftService, catalogService, logger, importer.Options{
		CurrencyCode: cfg.ImportCurrency,
		SeriesCode:   cfg.ImportSeries,
	})

	metrics := observability.NewMetrics()
	ledgerHandler := ledger.NewHandler(logger, draftService, coordinator, pipeline, catalogService, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: ledgerHandler,
		JobHandler:    jobHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
