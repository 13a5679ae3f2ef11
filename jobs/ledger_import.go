package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/austral-erp/austral-erp/internal/jobs"
	"github.com/austral-erp/austral-erp/internal/ledger/importer"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LedgerImportJob runs the two-phase workbook import worker-side so that
// large files do not tie up request handlers.
type LedgerImportJob struct {
	Drafts   importer.DraftWriter
	Catalogs importer.SnapshotProvider
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewLedgerImportJob initialises the import handler.
func NewLedgerImportJob(drafts importer.DraftWriter, catalogs importer.SnapshotProvider, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerImportJob {
	return &LedgerImportJob{Drafts: drafts, Catalogs: catalogs, Logger: logger, Metrics: metrics}
}

// Handle executes one import task.
func (j *LedgerImportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("ledger import: handler not configured")
	}
	var payload LedgerImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.CompanyID <= 0 || len(payload.Workbook) == 0 {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskLedgerImport)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int64("company_id", payload.CompanyID),
		slog.String("series", payload.SeriesCode),
	)
	logger.Info("starting ledger import")

	pipeline := importer.NewPipeline(j.Drafts, j.Catalogs, logger, importer.Options{
		CurrencyCode: payload.CurrencyCode,
		SeriesCode:   payload.SeriesCode,
	})
	result, err := pipeline.Run(ctx, payload.CompanyID, bytes.NewReader(payload.Workbook))
	if err != nil {
		resultErr = err
		logger.Error("import failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed ledger import",
		slog.String("state", string(result.State)),
		slog.Int("groups", result.Groups),
		slog.Int("created", len(result.Created)),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *LedgerImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerImport))
	}
	return slog.Default().With(slog.String("job", TaskLedgerImport))
}

func (j *LedgerImportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
