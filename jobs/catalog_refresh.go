package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/austral-erp/austral-erp/internal/jobs"
	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
)

// CatalogRefresher rebuilds a snapshot from source, replacing the cached one.
type CatalogRefresher interface {
	Refresh(ctx context.Context, companyID int64) (*catalog.Snapshot, error)
}

// CatalogRefreshJob keeps cached catalog snapshots from going stale between
// explicit invalidations.
type CatalogRefreshJob struct {
	Catalogs CatalogRefresher
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewCatalogRefreshJob initialises the refresh handler.
func NewCatalogRefreshJob(catalogs CatalogRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogRefreshJob {
	return &CatalogRefreshJob{Catalogs: catalogs, Logger: logger, Metrics: metrics}
}

// Handle executes one catalog refresh task.
func (j *CatalogRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalogs == nil {
		return errors.New("catalog refresh: handler not configured")
	}
	var payload CatalogRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.CompanyID <= 0 {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskCatalogRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("company_id", payload.CompanyID))
	snap, err := j.Catalogs.Refresh(ctx, payload.CompanyID)
	if err != nil {
		resultErr = err
		logger.Error("catalog refresh failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("refreshed catalog snapshot",
		slog.Int("accounts", len(snap.Accounts)),
		slog.Int("counterparties", len(snap.Counterparties)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *CatalogRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCatalogRefresh))
	}
	return slog.Default().With(slog.String("job", TaskCatalogRefresh))
}

func (j *CatalogRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
