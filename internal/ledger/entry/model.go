package entry

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
)

// Status enumerates the journal entry lifecycle.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
)

// Header is a journal entry header. Mutable while DRAFT, frozen once POSTED.
type Header struct {
	ID           uuid.UUID
	CompanyID    int64
	EntryDate    time.Time
	Description  string
	Reference    string
	CurrencyCode string
	SeriesCode   string
	Status       Status
	Correlative  *int64
	PostedAt     *time.Time
	PostedBy     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Line is one journal line as the editor works with it: human-typed codes
// alongside whatever ids have been resolved so far. Key is a stable row
// identity independent of LineNo; LineNo is a dense projection recomputed
// at save time and never used as row identity.
type Line struct {
	Key       string
	LineNo    int
	SourceRow int

	AccountCode            string
	Debit                  decimal.Decimal
	Credit                 decimal.Decimal
	Description            string
	Reference              string
	CounterpartyIdentifier string
	CostCenterCode         string
	BusinessLineCode       string
	BranchCode             string
	ItemCode               string
	TaxCode                string
	TaxRate                string

	AccountID      int64
	CounterpartyID *int64
	CostCenterID   *int64
	BusinessLineID *int64
	BranchID       *int64
	ItemID         *int64
	TaxID          *int64
}

// HasAmount reports whether either side of the line carries a value.
func (l Line) HasAmount() bool {
	return l.Debit.IsPositive() || l.Credit.IsPositive()
}

// Usable reports whether the line carries enough content to count as part
// of the entry. Blank scaffold rows from the editing grid are not usable.
func (l Line) Usable() bool {
	if l.HasAmount() {
		return true
	}
	if strings.TrimSpace(l.AccountCode) != "" {
		return true
	}
	if strings.TrimSpace(l.Description) != "" || strings.TrimSpace(l.Reference) != "" {
		return true
	}
	return strings.TrimSpace(l.CounterpartyIdentifier) != ""
}

// UsableLines filters scaffold rows out, preserving order.
func UsableLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Usable() {
			out = append(out, l)
		}
	}
	return out
}

// Renumber assigns the dense 1-based LineNo projection in slice order.
func Renumber(lines []Line) []Line {
	for i := range lines {
		lines[i].LineNo = i + 1
	}
	return lines
}

// BalanceDiff computes sum(debit) - sum(credit) over usable lines.
func BalanceDiff(lines []Line) decimal.Decimal {
	diff := decimal.Zero
	for _, l := range lines {
		if !l.Usable() {
			continue
		}
		diff = diff.Add(l.Debit).Sub(l.Credit)
	}
	return diff
}

// ResolveLines fills the internal ids for every code that resolves against
// the snapshot. Unresolved codes leave their id unset; the validator decides
// whether that blocks anything.
func ResolveLines(snap *catalog.Snapshot, lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	for i := range out {
		l := &out[i]
		if a := snap.Account(l.AccountCode); a != nil {
			l.AccountID = a.ID
		}
		if strings.TrimSpace(l.CounterpartyIdentifier) != "" {
			if cp := snap.Counterparty(l.CounterpartyIdentifier); cp != nil {
				id := cp.ID
				l.CounterpartyID = &id
			}
		}
		if strings.TrimSpace(l.CostCenterCode) != "" {
			if cc := snap.CostCenter(l.CostCenterCode); cc != nil {
				id := cc.ID
				l.CostCenterID = &id
			}
		}
		if strings.TrimSpace(l.BusinessLineCode) != "" {
			if bl := snap.BusinessLine(l.BusinessLineCode); bl != nil {
				id := bl.ID
				l.BusinessLineID = &id
			}
		}
		if strings.TrimSpace(l.BranchCode) != "" {
			if b := snap.Branch(l.BranchCode); b != nil {
				id := b.ID
				l.BranchID = &id
			}
		}
		if strings.TrimSpace(l.ItemCode) != "" {
			if it := snap.Item(l.ItemCode); it != nil {
				id := it.ID
				l.ItemID = &id
			}
		}
		if strings.TrimSpace(l.TaxCode) != "" {
			if t := snap.Tax(l.TaxCode); t != nil {
				id := t.ID
				l.TaxID = &id
			}
		}
	}
	return out
}
