// Package cache defines the byte cache used to replay idempotent responses.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values until their TTL lapses. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
