package drafts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/austral-erp/austral-erp/internal/ledger/entry"
	"github.com/austral-erp/austral-erp/internal/ledger/shared"
	"github.com/austral-erp/austral-erp/internal/platform/db"
)

// StoredLine is the persisted shape of a journal line: resolved ids only,
// dense line_no, no human-typed codes.
type StoredLine struct {
	HeaderID       uuid.UUID
	LineNo         int
	AccountID      int64
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Description    string
	Reference      string
	CounterpartyID *int64
	CostCenterID   *int64
	BusinessLineID *int64
	BranchID       *int64
	ItemID         *int64
	TaxID          *int64
	TaxRate        *decimal.Decimal
}

// Repository encapsulates store access for draft entries.
type Repository interface {
	GetHeader(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, error)
	GetLines(ctx context.Context, id uuid.UUID) ([]StoredLine, error)
	ListByStatus(ctx context.Context, companyID int64, status entry.Status) ([]entry.Header, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations that must share one transaction.
type TxRepository interface {
	GetHeaderForUpdate(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, error)
	UpsertHeader(ctx context.Context, header entry.Header) error
	DeleteLines(ctx context.Context, headerID uuid.UUID) error
	InsertLines(ctx context.Context, lines []StoredLine) error
	DeleteHeader(ctx context.Context, companyID int64, id uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const headerColumns = `id, company_id, entry_date, description, reference, currency_code, series_code, status, correlative, posted_at, posted_by, created_at, updated_at`

func scanHeader(row pgx.Row) (entry.Header, error) {
	var h entry.Header
	err := row.Scan(&h.ID, &h.CompanyID, &h.EntryDate, &h.Description, &h.Reference, &h.CurrencyCode,
		&h.SeriesCode, &h.Status, &h.Correlative, &h.PostedAt, &h.PostedBy, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entry.Header{}, shared.ErrEntryNotFound
		}
		return entry.Header{}, err
	}
	return h, nil
}

func (r *repository) GetHeader(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, error) {
	row := r.db.QueryRow(ctx, `SELECT `+headerColumns+` FROM journal_entries WHERE company_id=$1 AND id=$2`, companyID, id)
	return scanHeader(row)
}

func (r *repository) GetLines(ctx context.Context, id uuid.UUID) ([]StoredLine, error) {
	rows, err := r.db.Query(ctx, `SELECT entry_id, line_no, account_id, debit, credit, description, reference,
counterparty_id, cost_center_id, business_line_id, branch_id, item_id, tax_id, tax_rate
FROM journal_entry_lines WHERE entry_id=$1 ORDER BY line_no ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("drafts: select lines: %w", err)
	}
	defer rows.Close()
	var lines []StoredLine
	for rows.Next() {
		var l StoredLine
		if err := rows.Scan(&l.HeaderID, &l.LineNo, &l.AccountID, &l.Debit, &l.Credit, &l.Description, &l.Reference,
			&l.CounterpartyID, &l.CostCenterID, &l.BusinessLineID, &l.BranchID, &l.ItemID, &l.TaxID, &l.TaxRate); err != nil {
			return nil, fmt.Errorf("drafts: scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) ListByStatus(ctx context.Context, companyID int64, status entry.Status) ([]entry.Header, error) {
	rows, err := r.db.Query(ctx, `SELECT `+headerColumns+` FROM journal_entries
WHERE company_id=$1 AND status=$2 ORDER BY entry_date DESC, created_at DESC`, companyID, status)
	if err != nil {
		return nil, fmt.Errorf("drafts: list entries: %w", err)
	}
	defer rows.Close()
	var headers []entry.Header
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("drafts: scan entry: %w", err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
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
	row := r.tx.QueryRow(ctx, `SELECT `+headerColumns+` FROM journal_entries WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, id)
	return scanHeader(row)
}

func (r *txRepository) UpsertHeader(ctx context.Context, h entry.Header) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (id, company_id, entry_date, description, reference, currency_code, series_code, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET entry_date=EXCLUDED.entry_date, description=EXCLUDED.description,
reference=EXCLUDED.reference, currency_code=EXCLUDED.currency_code, series_code=EXCLUDED.series_code, updated_at=NOW()
WHERE journal_entries.status='DRAFT'`,
		h.ID, h.CompanyID, h.EntryDate, h.Description, h.Reference, h.CurrencyCode, h.SeriesCode, entry.StatusDraft)
	if err != nil {
		return fmt.Errorf("drafts: upsert header: %w", err)
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, headerID uuid.UUID) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE entry_id=$1`, headerID); err != nil {
		return fmt.Errorf("drafts: delete lines: %w", err)
	}
	return nil
}

func (r *txRepository) InsertLines(ctx context.Context, lines []StoredLine) error {
	for _, l := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines
(entry_id, line_no, account_id, debit, credit, description, reference, counterparty_id, cost_center_id, business_line_id, branch_id, item_id, tax_id, tax_rate)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			l.HeaderID, l.LineNo, l.AccountID, l.Debit, l.Credit, l.Description, l.Reference,
			l.CounterpartyID, l.CostCenterID, l.BusinessLineID, l.BranchID, l.ItemID, l.TaxID, l.TaxRate); err != nil {
			return fmt.Errorf("drafts: insert line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

// DeleteHeader removes the header row. Lines are deleted first by the
// caller; the schema carries no cascading delete.
func (r *txRepository) DeleteHeader(ctx context.Context, companyID int64, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE company_id=$1 AND id=$2 AND status='DRAFT'`, companyID, id)
	if err != nil {
		return fmt.Errorf("drafts: delete header: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}
