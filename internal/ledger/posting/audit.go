package posting

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogger writes posting events into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the event.
func (l *AuditLogger) Record(ctx context.Context, event AuditEvent) error {
	if l == nil || l.pool == nil {
		return errors.New("posting: audit logger not initialised")
	}
	if event.Action == "" || event.EntityID == "" {
		return errors.New("posting: audit event requires action/entity_id")
	}
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, 'journal_entry', $3, $4, COALESCE($5, NOW()))`,
		event.ActorID, event.Action, event.EntityID, metaJSON, event.At)
	return err
}
