package cache

import (
	"context"
	"time"
)

// Store is a key/value store with per-entry TTL. A Get reports found=false
// once the entry has expired. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
