package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerImport runs a workbook import asynchronously.
	TaskLedgerImport = "ledger:import"
	// TaskCatalogRefresh rebuilds a company catalog snapshot.
	TaskCatalogRefresh = "catalog:refresh"
)

// LedgerImportPayload carries everything the import pipeline needs to run
// detached from the originating HTTP request. Workbook holds the raw xlsx
// bytes (base64 on the wire via encoding/json).
type LedgerImportPayload struct {
	CompanyID    int64  `json:"company_id"`
	Workbook     []byte `json:"workbook"`
	CurrencyCode string `json:"currency_code"`
	SeriesCode   string `json:"series_code"`
	ActorID      string `json:"actor_id,omitempty"`
}

// NewLedgerImportTask constructs an Asynq task for a workbook import.
func NewLedgerImportTask(payload LedgerImportPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerImport, body, asynq.Queue(QueueDefault)), nil
}

// CatalogRefreshPayload identifies the company whose catalog should be rebuilt.
type CatalogRefreshPayload struct {
	CompanyID    int64     `json:"company_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewCatalogRefreshTask constructs an Asynq task for a catalog refresh.
func NewCatalogRefreshTask(companyID int64, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(CatalogRefreshPayload{CompanyID: companyID, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogRefresh, body, asynq.Queue(QueueDefault)), nil
}
