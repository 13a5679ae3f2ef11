package drafts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/entry"
	"github.com/austral-erp/austral-erp/internal/ledger/shared"
)

// editorMinRows is the number of grid rows OpenDraft pads the line list to.
const editorMinRows = 10

// SnapshotProvider supplies the catalog snapshot used for resolution and
// rehydration. Satisfied by catalog.Service.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, companyID int64) (*catalog.Snapshot, error)
}

// Service implements the draft lifecycle: save with replace-all-lines
// semantics, open with code rehydration, delete while DRAFT.
type Service struct {
	repo     Repository
	catalogs SnapshotProvider
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, catalogs SnapshotProvider, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalogs: catalogs, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SaveDraft validates without the balance rule and persists the entry when
// no error-level issue remains. The returned issues always include any
// warnings, even on success. Persistence is all-or-nothing: the header
// upsert, line wipe and line insert share one transaction.
func (s *Service) SaveDraft(ctx context.Context, header entry.Header, lines []entry.Line) (uuid.UUID, []entry.Issue, error) {
	snap, err := s.catalogs.Snapshot(ctx, header.CompanyID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("drafts: save: %w", err)
	}

	issues := entry.NewValidator(snap).Validate(header, lines, false)
	if entry.HasErrors(issues) {
		return uuid.Nil, issues, shared.ErrValidationFailed
	}

	if header.ID == uuid.Nil {
		header.ID = uuid.New()
	}
	header.Status = entry.StatusDraft

	usable := entry.Renumber(entry.ResolveLines(snap, entry.UsableLines(lines)))
	stored := make([]StoredLine, 0, len(usable))
	for _, l := range usable {
		stored = append(stored, toStored(header.ID, l))
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetHeaderForUpdate(ctx, header.CompanyID, header.ID)
		if err != nil && !errors.Is(err, shared.ErrEntryNotFound) {
			return err
		}
		if err == nil && current.Status != entry.StatusDraft {
			return shared.ErrNotDraft
		}
		if err := tx.UpsertHeader(ctx, header); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, header.ID); err != nil {
			return err
		}
		return tx.InsertLines(ctx, stored)
	})
	if err != nil {
		return uuid.Nil, issues, err
	}
	s.logger.Info("draft saved",
		slog.String("entry_id", header.ID.String()),
		slog.Int("lines", len(stored)))
	return header.ID, issues, nil
}

// OpenDraft rehydrates a stored entry back into the editor shape: ids turn
// back into human codes through the same snapshot the resolver uses, and
// the line list is padded with blank rows up to the grid working size.
func (s *Service) OpenDraft(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, []entry.Line, error) {
	header, err := s.repo.GetHeader(ctx, companyID, id)
	if err != nil {
		return entry.Header{}, nil, err
	}
	stored, err := s.repo.GetLines(ctx, id)
	if err != nil {
		return entry.Header{}, nil, err
	}
	snap, err := s.catalogs.Snapshot(ctx, companyID)
	if err != nil {
		return entry.Header{}, nil, fmt.Errorf("drafts: open: %w", err)
	}

	lines := make([]entry.Line, 0, max(len(stored), editorMinRows))
	for _, l := range stored {
		lines = append(lines, fromStored(snap, l))
	}
	for i := len(lines); i < editorMinRows; i++ {
		lines = append(lines, entry.Line{Key: "blank-" + strconv.Itoa(i+1)})
	}
	return header, lines, nil
}

// DeleteDraft removes a draft and its lines, lines first since the store
// has no cascading delete. Posted entries cannot be deleted.
func (s *Service) DeleteDraft(ctx context.Context, companyID int64, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetHeaderForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if current.Status != entry.StatusDraft {
			return shared.ErrNotDraft
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		return tx.DeleteHeader(ctx, companyID, id)
	})
}

// ListDrafts returns the company's draft headers, newest first.
func (s *Service) ListDrafts(ctx context.Context, companyID int64) ([]entry.Header, error) {
	return s.repo.ListByStatus(ctx, companyID, entry.StatusDraft)
}

func toStored(headerID uuid.UUID, l entry.Line) StoredLine {
	stored := StoredLine{
		HeaderID:       headerID,
		LineNo:         l.LineNo,
		AccountID:      l.AccountID,
		Debit:          l.Debit,
		Credit:         l.Credit,
		Description:    l.Description,
		Reference:      l.Reference,
		CounterpartyID: l.CounterpartyID,
		CostCenterID:   l.CostCenterID,
		BusinessLineID: l.BusinessLineID,
		BranchID:       l.BranchID,
		ItemID:         l.ItemID,
		TaxID:          l.TaxID,
	}
	if raw := strings.TrimSpace(strings.ReplaceAll(l.TaxRate, ",", ".")); raw != "" {
		if rate, err := decimal.NewFromString(raw); err == nil {
			stored.TaxRate = &rate
		}
	}
	return stored
}

func fromStored(snap *catalog.Snapshot, l StoredLine) entry.Line {
	line := entry.Line{
		Key:            "line-" + strconv.Itoa(l.LineNo),
		LineNo:         l.LineNo,
		AccountID:      l.AccountID,
		Debit:          l.Debit,
		Credit:         l.Credit,
		Description:    l.Description,
		Reference:      l.Reference,
		CounterpartyID: l.CounterpartyID,
		CostCenterID:   l.CostCenterID,
		BusinessLineID: l.BusinessLineID,
		BranchID:       l.BranchID,
		ItemID:         l.ItemID,
		TaxID:          l.TaxID,
	}
	if code, ok := snap.CodeForID(catalog.KindAccount, l.AccountID); ok {
		line.AccountCode = code
	}
	if l.CounterpartyID != nil {
		if code, ok := snap.CodeForID(catalog.KindCounterparty, *l.CounterpartyID); ok {
			line.CounterpartyIdentifier = code
		}
	}
	if l.CostCenterID != nil {
		if code, ok := snap.CodeForID(catalog.KindCostCenter, *l.CostCenterID); ok {
			line.CostCenterCode = code
		}
	}
	if l.BusinessLineID != nil {
		if code, ok := snap.CodeForID(catalog.KindBusinessLine, *l.BusinessLineID); ok {
			line.BusinessLineCode = code
		}
	}
	if l.BranchID != nil {
		if code, ok := snap.CodeForID(catalog.KindBranch, *l.BranchID); ok {
			line.BranchCode = code
		}
	}
	if l.ItemID != nil {
		if code, ok := snap.CodeForID(catalog.KindItem, *l.ItemID); ok {
			line.ItemCode = code
		}
	}
	if l.TaxID != nil {
		if code, ok := snap.CodeForID(catalog.KindTax, *l.TaxID); ok {
			line.TaxCode = code
		}
	}
	if l.TaxRate != nil {
		line.TaxRate = l.TaxRate.String()
	}
	return line
}
