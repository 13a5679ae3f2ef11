package importer

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/entry"
)

type mockDrafts struct {
	saved     []entry.Header
	saveError error
}

func (m *mockDrafts) SaveDraft(ctx context.Context, header entry.Header, lines []entry.Line) (uuid.UUID, []entry.Issue, error) {
	if m.saveError != nil {
		return uuid.Nil, nil, m.saveError
	}
	header.ID = uuid.New()
	m.saved = append(m.saved, header)
	return header.ID, nil, nil
}

type staticSnapshots struct {
	snap *catalog.Snapshot
}

func (s staticSnapshots) Snapshot(ctx context.Context, companyID int64) (*catalog.Snapshot, error) {
	return s.snap, nil
}

func testSnapshot() *catalog.Snapshot {
	snap := &catalog.Snapshot{
		CompanyID: 1,
		Accounts: []catalog.Account{
			{ID: 10, Code: "1101", Level: 3},
			{ID: 20, Code: "2101", Level: 3},
		},
		Policies: map[int64]catalog.ImputationPolicy{},
		Settings: catalog.Settings{MoneyDecimals: 2, PostingTolerance: decimal.Zero},
	}
	snap.BuildIndexes()
	return snap
}

func testPipeline(drafts *mockDrafts) *Pipeline {
	return NewPipeline(drafts, staticSnapshots{snap: testSnapshot()}, slog.Default(), Options{
		CurrencyCode: "CLP",
		SeriesCode:   "GEN",
	})
}

func TestRun_CreatesOneDraftPerGroup(t *testing.T) {
	file := buildWorkbook(t, [][]any{
		{"1", "2025-01-10", "Pago proveedor", "F-001", 1, "1101", "", 1000, nil, "", "", "", "", "", "", "", ""},
		{"1", nil, nil, nil, 2, "2101", nil, nil, 1000, "", "", "", "", "", "", "", ""},
		{"2", "2025-01-11", "Cobro cliente", "F-002", 1, "1101", "", nil, 500, "", "", "", "", "", "", "", ""},
		{"2", nil, nil, nil, 2, "2101", nil, 500, nil, "", "", "", "", "", "", "", ""},
	})
	drafts := &mockDrafts{}
	result, err := testPipeline(drafts).Run(context.Background(), 1, file)
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 2, result.Groups)
	assert.Len(t, result.Created, 2)
	assert.Empty(t, result.Errors)
	require.Len(t, drafts.saved, 2)
	assert.Equal(t, "Pago proveedor", drafts.saved[0].Description)
	assert.Equal(t, "F-001", drafts.saved[0].Reference)
	assert.Equal(t, "Cobro cliente", drafts.saved[1].Description)
	assert.Equal(t, "CLP", drafts.saved[0].CurrencyCode)
}

func TestRun_AnyGroupErrorRejectsEverything(t *testing.T) {
	file := buildWorkbook(t, [][]any{
		{"1", "2025-01-10", "Pago proveedor", "F-001", 1, "1101", "", 1000, nil, "", "", "", "", "", "", "", ""},
		{"1", nil, nil, nil, 2, "2101", nil, nil, 1000, "", "", "", "", "", "", "", ""},
		{"2", "2025-01-11", "Cobro cliente", "F-002", 1, "", "linea sin cuenta", nil, 500, "", "", "", "", "", "", "", ""},
		{"2", nil, nil, nil, 2, "2101", nil, 500, nil, "", "", "", "", "", "", "", ""},
	})
	drafts := &mockDrafts{}
	result, err := testPipeline(drafts).Run(context.Background(), 1, file)
	require.NoError(t, err)

	assert.Equal(t, StateRejected, result.State)
	assert.Empty(t, result.Created, "nothing persists when any group fails")
	assert.Empty(t, drafts.saved)
	require.NotEmpty(t, result.Errors)
	ge := result.Errors[0]
	assert.Equal(t, "2", ge.EntryKey)
	assert.Equal(t, 4, ge.SourceRow)
	assert.Equal(t, entry.CodeAccountRequired, ge.Issue.Code)
}

func TestRun_UnbalancedGroupStillImports(t *testing.T) {
	// Draft-phase validation skips the balance rule.
	file := buildWorkbook(t, [][]any{
		{"1", "2025-01-10", "Pago parcial", "", 1, "1101", "", 1000, nil, "", "", "", "", "", "", "", ""},
		{"1", nil, nil, nil, 2, "2101", nil, nil, 400, "", "", "", "", "", "", "", ""},
	})
	drafts := &mockDrafts{}
	result, err := testPipeline(drafts).Run(context.Background(), 1, file)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Len(t, result.Created, 1)
}

func TestRun_WarningsDoNotBlock(t *testing.T) {
	file := buildWorkbook(t, [][]any{
		{"1", "2025-01-10", "Pago proveedor", "", 1, "1101", "", 1000, nil, "99999999-9", "", "", "", "", "", "", ""},
		{"1", nil, nil, nil, 2, "2101", nil, nil, 1000, "", "", "", "", "", "", "", ""},
	})
	drafts := &mockDrafts{}
	result, err := testPipeline(drafts).Run(context.Background(), 1, file)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.NotEmpty(t, result.Warnings)
	assert.Len(t, result.Created, 1)
}

func TestRun_MissingDateFailsHeaderValidation(t *testing.T) {
	file := buildWorkbook(t, [][]any{
		{"1", "algun dia", "Pago proveedor", "", 1, "1101", "", 1000, nil, "", "", "", "", "", "", "", ""},
		{"1", nil, nil, nil, 2, "2101", nil, nil, 1000, "", "", "", "", "", "", "", ""},
	})
	drafts := &mockDrafts{}
	result, err := testPipeline(drafts).Run(context.Background(), 1, file)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	found := false
	for _, ge := range result.Errors {
		if ge.Issue.Code == entry.CodeDateRequired {
			found = true
		}
	}
	assert.True(t, found, "unparseable date must surface as DATE_REQUIRED, got %+v", result.Errors)
}

func TestRun_InfrastructureFailureAborts(t *testing.T) {
	file := buildWorkbook(t, [][]any{
		{"1", "2025-01-10", "Pago proveedor", "", 1, "1101", "", 1000, nil, "", "", "", "", "", "", "", ""},
		{"1", nil, nil, nil, 2, "2101", nil, nil, 1000, "", "", "", "", "", "", "", ""},
	})
	drafts := &mockDrafts{saveError: assert.AnError}
	_, err := testPipeline(drafts).Run(context.Background(), 1, file)
	require.Error(t, err)
	assert.Empty(t, drafts.saved)
}
