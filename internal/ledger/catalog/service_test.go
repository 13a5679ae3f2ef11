package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-erp/austral-erp/internal/ledger/shared"
)

type mockSource struct {
	loads       int
	inserts     int
	insertError error
	nextID      int64
	extra       []Counterparty
}

func (m *mockSource) Load(ctx context.Context, companyID int64) (*Snapshot, error) {
	m.loads++
	snap := buildSnapshot()
	snap.CompanyID = companyID
	snap.Counterparties = append(snap.Counterparties, m.extra...)
	snap.BuildIndexes()
	return snap, nil
}

func (m *mockSource) InsertCounterparty(ctx context.Context, companyID int64, in NewCounterpartyInput) (Counterparty, error) {
	if m.insertError != nil {
		return Counterparty{}, m.insertError
	}
	m.inserts++
	m.nextID++
	cp := Counterparty{ID: 1000 + m.nextID, Identifier: in.Identifier, Name: in.Name, Type: in.Type, Email: in.Email}
	m.extra = append(m.extra, cp)
	return cp, nil
}

func newTestService(t *testing.T) (*Service, *mockSource) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	source := &mockSource{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(source, NewCache(client, time.Minute), logger), source
}

func TestSnapshotLoadsThroughCache(t *testing.T) {
	svc, source := newTestService(t)
	ctx := context.Background()

	first, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, source.loads)

	second, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, second.Account("1101"))
	assert.Equal(t, 1, source.loads, "second read should come from cache")
}

func TestRefreshReloadsFromSource(t *testing.T) {
	svc, source := newTestService(t)
	ctx := context.Background()

	_, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}

func TestCreateCounterpartyRefreshesSnapshot(t *testing.T) {
	svc, source := newTestService(t)
	ctx := context.Background()

	_, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)

	cp, snap, err := svc.CreateCounterparty(ctx, 1, NewCounterpartyInput{
		Identifier: "11111111-1",
		Name:       "Cliente Nuevo",
		Type:       "CUSTOMER",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, source.inserts)

	// New record must resolve in the snapshot that comes back.
	require.NotNil(t, snap.Counterparty("11111111-1"))
	resolved, ok := snap.ResolveID(KindCounterparty, "11111111-1")
	require.True(t, ok)
	assert.Equal(t, cp.ID, resolved)
}

func TestCreateCounterpartyDuplicatePassesThrough(t *testing.T) {
	svc, source := newTestService(t)
	source.insertError = shared.ErrCounterpartyExists

	_, _, err := svc.CreateCounterparty(context.Background(), 1, NewCounterpartyInput{
		Identifier: "76543210-K",
		Name:       "Proveedor Uno",
		Type:       "SUPPLIER",
	})
	require.ErrorIs(t, err, shared.ErrCounterpartyExists)
	assert.Equal(t, 0, source.inserts)
}
