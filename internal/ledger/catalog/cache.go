package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores marshalled snapshots in Redis so sibling sessions of the
// same company do not reload every catalog on open. A nil Cache disables
// caching without changing caller behaviour.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func snapshotKey(companyID int64) string {
	return fmt.Sprintf("ledger:catalog:%d", companyID)
}

// Get returns the cached snapshot for the company, or nil on miss.
// The lookup indexes are rebuilt after unmarshal since they do not travel.
func (c *Cache) Get(ctx context.Context, companyID int64) (*Snapshot, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, snapshotKey(companyID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: cache get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("catalog: cache decode: %w", err)
	}
	snap.BuildIndexes()
	return &snap, nil
}

// Put stores the snapshot under the company key with the configured TTL.
func (c *Cache) Put(ctx context.Context, snap *Snapshot) error {
	if c == nil || c.client == nil || snap == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("catalog: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(snap.CompanyID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("catalog: cache put: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot, forcing the next load to hit the store.
func (c *Cache) Invalidate(ctx context.Context, companyID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, snapshotKey(companyID)).Err(); err != nil {
		return fmt.Errorf("catalog: cache invalidate: %w", err)
	}
	return nil
}
