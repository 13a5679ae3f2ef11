package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/austral-erp/austral-erp/internal/ledger/entry"
	"github.com/austral-erp/austral-erp/internal/ledger/shared"
	"github.com/austral-erp/austral-erp/internal/platform/db"
)

// Repository exposes the atomic posting operation's transaction scope.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the posting transaction surface: lock the entry, draw the
// next correlative from the numbering series, flip the status.
type TxRepository interface {
	GetHeaderForUpdate(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, error)
	NextCorrelative(ctx context.Context, companyID int64, series string) (int64, error)
	MarkPosted(ctx context.Context, id uuid.UUID, correlative int64, postedBy int64, postedAt time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetHeaderForUpdate(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, error) {
	var h entry.Header
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, entry_date, description, reference, currency_code, series_code, status, correlative, posted_at, posted_by, created_at, updated_at
FROM journal_entries WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, id).
		Scan(&h.ID, &h.CompanyID, &h.EntryDate, &h.Description, &h.Reference, &h.CurrencyCode,
			&h.SeriesCode, &h.Status, &h.Correlative, &h.PostedAt, &h.PostedBy, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entry.Header{}, shared.ErrEntryNotFound
		}
		return entry.Header{}, err
	}
	return h, nil
}

// NextCorrelative draws the next number from the series. The UPDATE takes a
// row lock, which is what serialises concurrent posts from different
// sessions against the same series.
func (r *txRepository) NextCorrelative(ctx context.Context, companyID int64, series string) (int64, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `UPDATE numbering_series SET next_number = next_number + 1, updated_at=NOW()
WHERE company_id=$1 AND code=$2 RETURNING next_number - 1`, companyID, series).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrSeriesNotFound
		}
		return 0, fmt.Errorf("posting: next correlative: %w", err)
	}
	return next, nil
}

func (r *txRepository) MarkPosted(ctx context.Context, id uuid.UUID, correlative int64, postedBy int64, postedAt time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status='POSTED', correlative=$2, posted_by=$3, posted_at=$4, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, id, correlative, nullInt(postedBy), postedAt)
	if err != nil {
		return fmt.Errorf("posting: mark posted: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyPosted
	}
	return nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
