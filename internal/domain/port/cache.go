package port

import (
	"context"
	"time"
)

// CachePort is the short-TTL result cache for assembled responses. Entries
// past expiry behave as absent.
type CachePort interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
