package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/austral-erp/austral-erp/internal/ledger/shared"
)

// Source loads the per-company catalog snapshot from the store.
type Source interface {
	Load(ctx context.Context, companyID int64) (*Snapshot, error)
	InsertCounterparty(ctx context.Context, companyID int64, in NewCounterpartyInput) (Counterparty, error)
}

type source struct {
	db *pgxpool.Pool
}

func NewSource(db *pgxpool.Pool) Source {
	return &source{db: db}
}

// Load reads every catalog in one pass. The snapshot is a point-in-time
// view; mid-edit changes in the store are not visible until the next refresh.
func (s *source) Load(ctx context.Context, companyID int64) (*Snapshot, error) {
	snap := &Snapshot{CompanyID: companyID, Policies: make(map[int64]ImputationPolicy)}

	rows, err := s.db.Query(ctx, `SELECT id, code, name, level FROM accounts WHERE company_id=$1 AND is_active ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load accounts: %w", err)
	}
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Level); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: scan account: %w", err)
		}
		snap.Accounts = append(snap.Accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load accounts: %w", err)
	}

	rows, err = s.db.Query(ctx, `SELECT account_id, require_cc, require_cu, require_branch, require_item, require_counterparty
FROM account_imputation_policies WHERE company_id=$1`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load policies: %w", err)
	}
	for rows.Next() {
		var accountID int64
		var p ImputationPolicy
		if err := rows.Scan(&accountID, &p.RequireCC, &p.RequireCU, &p.RequireBranch, &p.RequireItem, &p.RequireCounterparty); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: scan policy: %w", err)
		}
		snap.Policies[accountID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load policies: %w", err)
	}

	rows, err = s.db.Query(ctx, `SELECT id, code, name FROM cost_centers WHERE company_id=$1 AND is_active ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load cost centers: %w", err)
	}
	for rows.Next() {
		var c CostCenter
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: scan cost center: %w", err)
		}
		snap.CostCenters = append(snap.CostCenters, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load cost centers: %w", err)
	}

	rows, err = s.db.Query(ctx, `SELECT id, code, name FROM business_lines WHERE company_id=$1 AND is_active ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load business lines: %w", err)
	}
	for rows.Next() {
		var b BusinessLine
		if err := rows.Scan(&b.ID, &b.Code, &b.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: scan business line: %w", err)
		}
		snap.BusinessLines = append(snap.BusinessLines, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load business lines: %w", err)
	}

	rows, err = s.db.Query(ctx, `SELECT id, code, name FROM branches WHERE company_id=$1 AND is_active ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load branches: %w", err)
	}
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: scan branch: %w", err)
		}
		snap.Branches = append(snap.Branches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load branches: %w", err)
	}

	rows, err = s.db.Query(ctx, `SELECT id, sku, name FROM items WHERE company_id=$1 AND is_active ORDER BY sku`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load items: %w", err)
	}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SKU, &it.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: scan item: %w", err)
		}
		snap.Items = append(snap.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load items: %w", err)
	}

	taxes, err := s.loadTaxes(ctx, companyID)
	if err != nil {
		return nil, err
	}
	snap.Taxes = taxes

	rows, err = s.db.Query(ctx, `SELECT id, identifier, name, type, COALESCE(email,''), created_at FROM counterparties WHERE company_id=$1 ORDER BY identifier`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load counterparties: %w", err)
	}
	for rows.Next() {
		var cp Counterparty
		if err := rows.Scan(&cp.ID, &cp.Identifier, &cp.Name, &cp.Type, &cp.Email, &cp.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: scan counterparty: %w", err)
		}
		snap.Counterparties = append(snap.Counterparties, cp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load counterparties: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT money_decimals, posting_tolerance FROM accounting_settings WHERE company_id=$1`, companyID).
		Scan(&snap.Settings.MoneyDecimals, &snap.Settings.PostingTolerance)
	if err != nil {
		return nil, fmt.Errorf("catalog: load settings: %w", err)
	}

	snap.BuildIndexes()
	return snap, nil
}

func (s *source) loadTaxes(ctx context.Context, companyID int64) ([]Tax, error) {
	rows, err := s.db.Query(ctx, `SELECT t.id, t.code, t.name, r.rate
FROM taxes t JOIN tax_rates r ON r.tax_id = t.id AND r.is_active
WHERE t.company_id=$1 ORDER BY t.code, r.rate`, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load taxes: %w", err)
	}
	defer rows.Close()
	var taxes []Tax
	byID := map[int64]int{}
	for rows.Next() {
		var (
			id   int64
			code string
			name string
			rate decimal.Decimal
		)
		if err := rows.Scan(&id, &code, &name, &rate); err != nil {
			return nil, fmt.Errorf("catalog: scan tax: %w", err)
		}
		idx, ok := byID[id]
		if !ok {
			taxes = append(taxes, Tax{ID: id, Code: code, Name: name})
			idx = len(taxes) - 1
			byID[id] = idx
		}
		taxes[idx].Rates = append(taxes[idx].Rates, rate)
	}
	return taxes, rows.Err()
}

// InsertCounterparty creates a counterparty on explicit user request.
// Duplicate identifiers map to ErrCounterpartyExists.
func (s *source) InsertCounterparty(ctx context.Context, companyID int64, in NewCounterpartyInput) (Counterparty, error) {
	var cp Counterparty
	err := s.db.QueryRow(ctx, `INSERT INTO counterparties (company_id, identifier, name, type, email)
VALUES ($1,$2,$3,$4,NULLIF($5,'')) RETURNING id, identifier, name, type, COALESCE(email,''), created_at`,
		companyID, in.Identifier, in.Name, in.Type, in.Email).
		Scan(&cp.ID, &cp.Identifier, &cp.Name, &cp.Type, &cp.Email, &cp.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_counterparties_identifier" {
			return Counterparty{}, shared.ErrCounterpartyExists
		}
		return Counterparty{}, fmt.Errorf("catalog: insert counterparty: %w", err)
	}
	return cp, nil
}
