package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/entry"
)

// State names the phase the pipeline is in. The progression is strictly
// Parsing -> Validating -> (Rejected | Persisting) -> Done; persistence is
// unreachable while any group still has an error.
type State string

const (
	StateParsing    State = "parsing"
	StateValidating State = "validating"
	StateRejected   State = "rejected"
	StatePersisting State = "persisting"
	StateDone       State = "done"
)

// GroupError is one validation finding with enough context to point the
// user at the offending spreadsheet cell.
type GroupError struct {
	EntryKey  string      `json:"entry_key"`
	SourceRow int         `json:"source_row"`
	Issue     entry.Issue `json:"issue"`
}

func (e GroupError) String() string {
	return fmt.Sprintf("group %s, row %d: %s", e.EntryKey, e.SourceRow, e.Issue.Message)
}

// Result reports the import outcome. Created is empty unless every group
// validated clean.
type Result struct {
	State    State        `json:"state"`
	Groups   int          `json:"groups"`
	Created  []uuid.UUID  `json:"created"`
	Errors   []GroupError `json:"errors,omitempty"`
	Warnings []GroupError `json:"warnings,omitempty"`
}

// DraftWriter is the slice of the draft service the pipeline persists through.
type DraftWriter interface {
	SaveDraft(ctx context.Context, header entry.Header, lines []entry.Line) (uuid.UUID, []entry.Issue, error)
}

// SnapshotProvider supplies the catalog snapshot for phase-1 validation.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, companyID int64) (*catalog.Snapshot, error)
}

// Options carries the header fields the spreadsheet does not supply.
type Options struct {
	CurrencyCode string
	SeriesCode   string
}

// Pipeline turns a workbook into drafts with an all-or-nothing gate:
// every group is validated before any group is persisted, so a half
// imported file can never slip into the ledger unnoticed.
type Pipeline struct {
	drafts   DraftWriter
	catalogs SnapshotProvider
	logger   *slog.Logger
	opts     Options
}

func NewPipeline(drafts DraftWriter, catalogs SnapshotProvider, logger *slog.Logger, opts Options) *Pipeline {
	return &Pipeline{drafts: drafts, catalogs: catalogs, logger: logger, opts: opts}
}

// Run executes the full import. A non-nil error means infrastructure
// failed; validation problems come back inside the Result instead.
func (p *Pipeline) Run(ctx context.Context, companyID int64, file io.Reader) (Result, error) {
	result := Result{State: StateParsing}

	rows, err := ParseWorkbook(file)
	if err != nil {
		return result, err
	}
	groups := GroupRows(rows)
	result.Groups = len(groups)

	result.State = StateValidating
	snap, err := p.catalogs.Snapshot(ctx, companyID)
	if err != nil {
		return result, fmt.Errorf("importer: snapshot: %w", err)
	}
	validator := entry.NewValidator(snap)

	type candidate struct {
		group  Group
		header entry.Header
		lines  []entry.Line
	}
	candidates := make([]candidate, 0, len(groups))
	for _, group := range groups {
		header, lines := p.buildEntry(companyID, group)
		for _, issue := range validator.Validate(header, lines, false) {
			ge := GroupError{EntryKey: group.Key, SourceRow: sourceRowFor(group, issue), Issue: issue}
			if issue.Level == entry.LevelError {
				result.Errors = append(result.Errors, ge)
			} else {
				result.Warnings = append(result.Warnings, ge)
			}
		}
		candidates = append(candidates, candidate{group: group, header: header, lines: lines})
	}

	if len(result.Errors) > 0 {
		result.State = StateRejected
		p.logger.Info("import rejected",
			slog.Int("groups", len(groups)),
			slog.Int("errors", len(result.Errors)))
		return result, nil
	}

	result.State = StatePersisting
	for _, c := range candidates {
		id, _, err := p.drafts.SaveDraft(ctx, c.header, c.lines)
		if err != nil {
			// Infrastructure failure: already-created drafts stay; the
			// caller re-runs after fixing connectivity.
			return result, fmt.Errorf("importer: persist group %s: %w", c.group.Key, err)
		}
		result.Created = append(result.Created, id)
	}
	result.State = StateDone
	p.logger.Info("import complete",
		slog.Int("groups", len(groups)),
		slog.Int("created", len(result.Created)))
	return result, nil
}

// buildEntry shapes one group into a header plus candidate lines. The first
// row supplies the header; lines are numbered by in-group position, while
// SourceRow keeps the original file row for error messages.
func (p *Pipeline) buildEntry(companyID int64, group Group) (entry.Header, []entry.Line) {
	first := group.Rows[0]
	header := entry.Header{
		CompanyID:    companyID,
		EntryDate:    first.Date,
		Description:  first.Description,
		Reference:    first.DocReference,
		CurrencyCode: p.opts.CurrencyCode,
		SeriesCode:   p.opts.SeriesCode,
		Status:       entry.StatusDraft,
	}
	lines := make([]entry.Line, 0, len(group.Rows))
	for i, row := range group.Rows {
		lines = append(lines, entry.Line{
			Key:                    fmt.Sprintf("import-%s-%d", group.Key, i+1),
			LineNo:                 i + 1,
			SourceRow:              row.SourceRow,
			AccountCode:            row.AccountCode,
			Debit:                  row.Debit,
			Credit:                 row.Credit,
			Description:            row.LineDescription,
			Reference:              row.LineReference,
			CounterpartyIdentifier: row.CounterpartyIdentifier,
			CostCenterCode:         row.CostCenterCode,
			BusinessLineCode:       row.BusinessLineCode,
			BranchCode:             row.BranchCode,
			ItemCode:               row.ItemCode,
			TaxCode:                row.TaxCode,
			TaxRate:                row.TaxRate,
		})
	}
	return header, lines
}

// sourceRowFor maps a validation issue back to its originating file row.
// Header-level issues point at the group's first row.
func sourceRowFor(group Group, issue entry.Issue) int {
	if issue.LineNo > 0 && issue.LineNo <= len(group.Rows) {
		return group.Rows[issue.LineNo-1].SourceRow
	}
	return group.Rows[0].SourceRow
}
