// Package ristretto implements the cache port with an in-process
// dgraph-io/ristretto cache. It holds idempotent response replays only.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/holidayhomes/bookingapi/internal/port/cache"
)

var _ cache.Cache = (*Cache)(nil)

// minCounters keeps admission statistics useful for very small budgets.
const minCounters = 1000

// Cache wraps a ristretto cache keyed by string.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a ristretto-backed cache. maxCostBytes is the maximum total
// size of cached values in bytes.
func New(maxCostBytes int64) (*Cache, error) {
	if maxCostBytes <= 0 {
		return nil, fmt.Errorf("ristretto: max cost must be positive, got %d", maxCostBytes)
	}
	counters := max(maxCostBytes/100*10, minCounters) // ~10x expected items
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value with the given TTL and waits until it is readable, so a
// client retry arriving right after the first response sees the replay.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.c.SetWithTTL(key, value, int64(len(value)), ttl) {
		return fmt.Errorf("ristretto: value for %q dropped", key)
	}
	c.c.Wait()
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
