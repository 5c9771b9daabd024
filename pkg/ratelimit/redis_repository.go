package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements the Repository interface using Redis. INCR is
// atomic, and the expiry set with NX semantics pins the window to the
// first hit; Redis evicts expired windows on its own.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis rate-limit repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

func windowKey(clientKey, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", clientKey, endpoint)
}

// Increment bumps the counter for (clientKey, endpoint)
func (r *RedisRepository) Increment(ctx context.Context, clientKey, endpoint string, window time.Duration) (Counter, error) {
	key := windowKey(clientKey, endpoint)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Counter{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	resetAt := time.Now().Add(ttl.Val())
	return Counter{
		Count:       int(incr.Val()),
		WindowStart: resetAt.Add(-window),
		ResetAt:     resetAt,
	}, nil
}

// DeleteExpired is a no-op: Redis expires windows via key TTLs.
func (r *RedisRepository) DeleteExpired(ctx context.Context) error {
	return nil
}
