package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), srv
}

func TestCacheRoundTripRebuildsIndexes(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	snap := buildSnapshot()
	require.NoError(t, cache.Put(ctx, snap))

	got, err := cache.Get(ctx, snap.CompanyID)
	require.NoError(t, err)
	require.NotNil(t, got)

	// Indexes do not travel through JSON; Get must rebuild them.
	account := got.Account("1101")
	require.NotNil(t, account)
	assert.Equal(t, int64(10), account.ID)
	assert.True(t, got.PolicyFor(30).RequireCC)
}

func TestCacheMissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheInvalidateDropsKey(t *testing.T) {
	cache, srv := newTestCache(t)
	ctx := context.Background()

	snap := buildSnapshot()
	require.NoError(t, cache.Put(ctx, snap))
	require.True(t, srv.Exists("ledger:catalog:1"))

	require.NoError(t, cache.Invalidate(ctx, snap.CompanyID))
	assert.False(t, srv.Exists("ledger:catalog:1"))
}

func TestNilCacheIsInert(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Put(ctx, buildSnapshot()))
	assert.NoError(t, cache.Invalidate(ctx, 1))
}
