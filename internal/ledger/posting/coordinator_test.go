package posting

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/entry"
	"github.com/austral-erp/austral-erp/internal/ledger/shared"
)

type mockStore struct {
	headers map[uuid.UUID]*entry.Header
	lines   map[uuid.UUID][]entry.Line
	series  map[string]int64

	markError error
	audits    []AuditEvent
}

func newMockStore() *mockStore {
	return &mockStore{
		headers: make(map[uuid.UUID]*entry.Header),
		lines:   make(map[uuid.UUID][]entry.Line),
		series:  map[string]int64{"GEN": 100},
	}
}

func (m *mockStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	series := make(map[string]int64, len(m.series))
	for k, v := range m.series {
		series[k] = v
	}
	headers := make(map[uuid.UUID]entry.Header, len(m.headers))
	for k, v := range m.headers {
		headers[k] = *v
	}
	if err := fn(ctx, &mockTx{store: m}); err != nil {
		m.series = series
		for k := range m.headers {
			h := headers[k]
			m.headers[k] = &h
		}
		return err
	}
	return nil
}

type mockTx struct {
	store *mockStore
}

func (t *mockTx) GetHeaderForUpdate(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, error) {
	h, ok := t.store.headers[id]
	if !ok {
		return entry.Header{}, shared.ErrEntryNotFound
	}
	return *h, nil
}

func (t *mockTx) NextCorrelative(ctx context.Context, companyID int64, series string) (int64, error) {
	next, ok := t.store.series[series]
	if !ok {
		return 0, shared.ErrSeriesNotFound
	}
	t.store.series[series] = next + 1
	return next, nil
}

func (t *mockTx) MarkPosted(ctx context.Context, id uuid.UUID, correlative int64, postedBy int64, postedAt time.Time) error {
	if t.store.markError != nil {
		return t.store.markError
	}
	h := t.store.headers[id]
	if h.Status != entry.StatusDraft {
		return shared.ErrAlreadyPosted
	}
	h.Status = entry.StatusPosted
	h.Correlative = &correlative
	h.PostedAt = &postedAt
	return nil
}

func (m *mockStore) Record(ctx context.Context, event AuditEvent) error {
	m.audits = append(m.audits, event)
	return nil
}

func (m *mockStore) OpenDraft(ctx context.Context, companyID int64, id uuid.UUID) (entry.Header, []entry.Line, error) {
	h, ok := m.headers[id]
	if !ok {
		return entry.Header{}, nil, shared.ErrEntryNotFound
	}
	return *h, m.lines[id], nil
}

func (m *mockStore) ListDrafts(ctx context.Context, companyID int64) ([]entry.Header, error) {
	var out []entry.Header
	for _, h := range m.headers {
		if h.Status == entry.StatusDraft {
			out = append(out, *h)
		}
	}
	return out, nil
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
		Settings: catalog.Settings{MoneyDecimals: 2, PostingTolerance: decimal.RequireFromString("0.01")},
	}
	snap.BuildIndexes()
	return snap
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (m *mockStore) addDraft(debit, credit string) uuid.UUID {
	id := uuid.New()
	m.headers[id] = &entry.Header{
		ID:          id,
		CompanyID:   1,
		EntryDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: "Pago proveedor",
		SeriesCode:  "GEN",
		Status:      entry.StatusDraft,
	}
	m.lines[id] = []entry.Line{
		{LineNo: 1, AccountCode: "1101", Debit: amt(debit)},
		{LineNo: 2, AccountCode: "2101", Credit: amt(credit)},
	}
	return id
}

func testCoordinator(store *mockStore) *Coordinator {
	c := NewCoordinator(store, store, staticSnapshots{snap: testSnapshot()}, store, slog.Default())
	c.WithNow(func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) })
	return c
}

func TestPost_AssignsCorrelativeAndLocks(t *testing.T) {
	store := newMockStore()
	id := store.addDraft("1000", "1000")
	c := testCoordinator(store)

	posted, issues, err := c.Post(context.Background(), 1, id, 7)
	require.NoError(t, err)
	assert.Nil(t, issues)
	require.NotNil(t, posted.Correlative)
	assert.Equal(t, int64(100), *posted.Correlative)
	assert.Equal(t, entry.StatusPosted, store.headers[id].Status)
	assert.Equal(t, int64(101), store.series["GEN"], "series advanced once")
	require.Len(t, store.audits, 1)
	assert.Equal(t, "journal.post", store.audits[0].Action)
}

func TestPost_SecondCallFailsWithoutConsumingCorrelative(t *testing.T) {
	store := newMockStore()
	id := store.addDraft("1000", "1000")
	c := testCoordinator(store)

	_, _, err := c.Post(context.Background(), 1, id, 7)
	require.NoError(t, err)

	_, _, err = c.Post(context.Background(), 1, id, 7)
	require.ErrorIs(t, err, shared.ErrAlreadyPosted)
	assert.Equal(t, int64(101), store.series["GEN"], "failed post must not draw a number")
}

func TestPost_StrictBalanceBlocks(t *testing.T) {
	store := newMockStore()
	id := store.addDraft("1000", "900")
	c := testCoordinator(store)

	_, issues, err := c.Post(context.Background(), 1, id, 7)
	require.ErrorIs(t, err, shared.ErrValidationFailed)
	require.NotEmpty(t, issues)
	found := false
	for _, issue := range issues {
		if issue.Code == entry.CodeNotBalanced {
			found = true
		}
	}
	assert.True(t, found, "expected NOT_BALANCED, got %+v", issues)
	assert.Equal(t, entry.StatusDraft, store.headers[id].Status)
	assert.Equal(t, int64(100), store.series["GEN"])
}

func TestPost_AtomicOperationFailureLeavesDraft(t *testing.T) {
	store := newMockStore()
	id := store.addDraft("1000", "1000")
	store.markError = assert.AnError
	c := testCoordinator(store)

	_, _, err := c.Post(context.Background(), 1, id, 7)
	require.Error(t, err)
	assert.Equal(t, entry.StatusDraft, store.headers[id].Status)
	assert.Nil(t, store.headers[id].Correlative)
	assert.Equal(t, int64(100), store.series["GEN"], "rollback must not leak a correlative")
}

func TestPost_WithinToleranceSucceeds(t *testing.T) {
	store := newMockStore()
	id := store.addDraft("1000", "999.99")
	c := testCoordinator(store)

	_, _, err := c.Post(context.Background(), 1, id, 7)
	require.NoError(t, err)
}

func TestPostBatch_SkipsAndContinues(t *testing.T) {
	store := newMockStore()
	ok1 := store.addDraft("100", "100")
	unbalanced := store.addDraft("100", "50")
	ok2 := store.addDraft("200", "200")
	missingSeries := store.addDraft("300", "300")
	store.headers[missingSeries].SeriesCode = "NOPE"
	c := testCoordinator(store)

	result, err := c.PostBatch(context.Background(), 1, []uuid.UUID{ok1, unbalanced, ok2, missingSeries}, 7)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{ok1, ok2}, result.Posted)
	assert.Equal(t, SkipOutOfTolerance, result.Skipped[unbalanced])
	assert.Contains(t, result.Failed, missingSeries)
	assert.Equal(t, entry.StatusDraft, store.headers[unbalanced].Status)

	// Numbers went out in batch order.
	assert.Equal(t, int64(100), *store.headers[ok1].Correlative)
	assert.Equal(t, int64(101), *store.headers[ok2].Correlative)
}

func TestPostBatch_SkipsPostedEntries(t *testing.T) {
	store := newMockStore()
	id := store.addDraft("100", "100")
	store.headers[id].Status = entry.StatusPosted
	c := testCoordinator(store)

	result, err := c.PostBatch(context.Background(), 1, []uuid.UUID{id}, 7)
	require.NoError(t, err)
	assert.Empty(t, result.Posted)
	assert.Equal(t, SkipNotDraft, result.Skipped[id])
}
