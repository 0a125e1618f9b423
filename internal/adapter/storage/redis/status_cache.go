package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// StatusCache implements ports.StatusCache using Redis. It holds marshaled
// reconciliation results for terminal payments, keyed by reference, so
// settled payments answer polls without touching the record store or the
// gateway.
type StatusCache struct {
	client *goredis.Client
	prefix string
}

// NewStatusCache creates a new Redis-backed status cache.
func NewStatusCache(client *goredis.Client) *StatusCache {
	return &StatusCache{
		client: client,
		prefix: "payment-status:",
	}
}

// Get retrieves a cached result by payment reference.
// Returns nil, nil if the key does not exist.
func (c *StatusCache) Get(ctx context.Context, reference string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+reference).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis status get: %w", err)
	}
	return val, nil
}

// Set stores a result with TTL.
func (c *StatusCache) Set(ctx context.Context, reference string, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+reference, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis status set: %w", err)
	}
	return nil
}
