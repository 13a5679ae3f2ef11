package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/austral-erp/austral-erp/internal/app"
	jobmetrics "github.com/austral-erp/austral-erp/internal/jobs"
	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/drafts"
	"github.com/austral-erp/austral-erp/internal/platform/cache"
	"github.com/austral-erp/austral-erp/internal/platform/db"
	workerjobs "github.com/austral-erp/austral-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, catalog caching disabled", slog.Any("error", err))
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

	metrics := jobmetrics.NewMetrics(nil)
	importJob := workerjobs.NewLedgerImportJob(draftService, catalogService, logger, metrics)
	refreshJob := workerjobs.NewCatalogRefreshJob(catalogService, logger, metrics)

	cron := make([]workerjobs.CronRegistration, 0, len(cfg.CompanyIDs))
	for _, companyID := range cfg.CompanyIDs {
		task, err := workerjobs.NewCatalogRefreshTask(companyID, time.Now().UTC())
		if err != nil {
			logger.Error("build catalog refresh task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, workerjobs.CronRegistration{
			Spec:    "45 1 * * *",
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := workerjobs.NewWorker(workerjobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []workerjobs.TaskHandler{
			{Type: workerjobs.TaskLedgerImport, Handler: importJob.Handle},
			{Type: workerjobs.TaskCatalogRefresh, Handler: refreshJob.Handle},
		},
		Cron: cron,
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
