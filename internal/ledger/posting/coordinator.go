package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/entry"
	"github.com/austral-erp/austral-erp/internal/ledger/shared"
)

// AuditPort records posting events. A nil port disables auditing; audit
// failures never fail the posting itself.
type AuditPort interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditEvent captures who posted what.
type AuditEvent struct {
	ActorID  int64
	Action   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// DraftReader is the slice of the draft service the coordinator needs.
type DraftReader interface {
	OpenDraft(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, []entry.Line, error)
	ListDrafts(ctx context.Context, companyID int64) ([]entry.Header, error)
}

// SnapshotProvider supplies the catalog snapshot for strict validation.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, companyID int64) (*catalog.Snapshot, error)
}

// Coordinator drives the draft to POSTED transition: strict re-validation,
// then one atomic store operation that assigns the correlative and locks
// the entry. It never retries; a failed post leaves the draft untouched.
type Coordinator struct {
	repo     Repository
	drafts   DraftReader
	catalogs SnapshotProvider
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

func NewCoordinator(repo Repository, drafts DraftReader, catalogs SnapshotProvider, audit AuditPort, logger *slog.Logger) *Coordinator {
	return &Coordinator{repo: repo, drafts: drafts, catalogs: catalogs, audit: audit, logger: logger, now: time.Now}
}

func (c *Coordinator) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Post re-validates the stored draft with the balance rule on and, when
// clean, performs the atomic post. The returned issues are non-nil exactly
// when validation blocked the post.
func (c *Coordinator) Post(ctx context.Context, companyID int64, id uuid.UUID, actorID int64) (entry.Header, []entry.Issue, error) {
	header, lines, err := c.drafts.OpenDraft(ctx, companyID, id)
	if err != nil {
		return entry.Header{}, nil, err
	}
	if header.Status != entry.StatusDraft {
		return entry.Header{}, nil, shared.ErrAlreadyPosted
	}

	snap, err := c.catalogs.Snapshot(ctx, companyID)
	if err != nil {
		return entry.Header{}, nil, fmt.Errorf("posting: snapshot: %w", err)
	}
	issues := entry.NewValidator(snap).Validate(header, lines, true)
	if entry.HasErrors(issues) {
		return entry.Header{}, issues, shared.ErrValidationFailed
	}

	postedAt := c.now()
	var posted entry.Header
	err = c.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetHeaderForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if current.Status != entry.StatusDraft {
			return shared.ErrAlreadyPosted
		}
		correlative, err := tx.NextCorrelative(ctx, companyID, current.SeriesCode)
		if err != nil {
			return err
		}
		if err := tx.MarkPosted(ctx, id, correlative, actorID, postedAt); err != nil {
			return err
		}
		posted = current
		posted.Status = entry.StatusPosted
		posted.Correlative = &correlative
		posted.PostedAt = &postedAt
		if actorID != 0 {
			posted.PostedBy = &actorID
		}
		return nil
	})
	if err != nil {
		return entry.Header{}, nil, err
	}

	if c.audit != nil {
		_ = c.audit.Record(ctx, AuditEvent{
			ActorID:  actorID,
			Action:   "journal.post",
			EntityID: id.String(),
			Meta: map[string]any{
				"correlative": *posted.Correlative,
				"series":      posted.SeriesCode,
			},
			At: postedAt,
		})
	}
	c.logger.Info("entry posted",
		slog.String("entry_id", id.String()),
		slog.Int64("correlative", *posted.Correlative),
		slog.String("series", posted.SeriesCode))
	return posted, nil, nil
}

// SkipReason explains why a batch member was not attempted.
type SkipReason string

const (
	SkipOutOfTolerance SkipReason = "out_of_tolerance"
	SkipNotDraft       SkipReason = "not_draft"
)

// BatchResult reports the per-entry outcome of a batch post.
type BatchResult struct {
	Posted  []uuid.UUID              `json:"posted"`
	Skipped map[uuid.UUID]SkipReason `json:"skipped"`
	Failed  map[uuid.UUID]string     `json:"failed"`
}

// PostBatch posts each candidate draft sequentially. Drafts outside the
// posting tolerance are skipped, not attempted; a failed attempt is
// recorded and does not stop the rest of the batch. Sequential iteration
// keeps correlative order predictable and failures attributable.
func (c *Coordinator) PostBatch(ctx context.Context, companyID int64, ids []uuid.UUID, actorID int64) (BatchResult, error) {
	result := BatchResult{
		Skipped: make(map[uuid.UUID]SkipReason),
		Failed:  make(map[uuid.UUID]string),
	}
	snap, err := c.catalogs.Snapshot(ctx, companyID)
	if err != nil {
		return result, fmt.Errorf("posting: snapshot: %w", err)
	}

	for _, id := range ids {
		header, lines, err := c.drafts.OpenDraft(ctx, companyID, id)
		if err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		if header.Status != entry.StatusDraft {
			result.Skipped[id] = SkipNotDraft
			c.logger.Warn("batch post skipped entry", slog.String("entry_id", id.String()), slog.String("reason", string(SkipNotDraft)))
			continue
		}
		diff := entry.BalanceDiff(lines)
		if diff.Abs().GreaterThan(snap.Settings.PostingTolerance) {
			result.Skipped[id] = SkipOutOfTolerance
			c.logger.Warn("batch post skipped entry",
				slog.String("entry_id", id.String()),
				slog.String("reason", string(SkipOutOfTolerance)),
				slog.String("diff", diff.String()))
			continue
		}
		if _, issues, err := c.Post(ctx, companyID, id, actorID); err != nil {
			msg := err.Error()
			if errors.Is(err, shared.ErrValidationFailed) && len(issues) > 0 {
				msg = fmt.Sprintf("%s: %s", msg, issues[0].Message)
			}
			result.Failed[id] = msg
			continue
		}
		result.Posted = append(result.Posted, id)
	}
	return result, nil
}
