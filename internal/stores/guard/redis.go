package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanbaker/credlink/pkg/guard"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces guard keys
const redisKeyPrefix = "credlink:request:"

// RedisGuard keeps request ids in Redis. SETNX gives per-key atomicity and the policy TTL
// becomes the key expiry, so no sweeping is needed
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ guard.Guard = (*RedisGuard)(nil)

// NewRedisGuard creates a Redis-backed guard. MaxEntries is not enforced; Redis eviction handles memory
func NewRedisGuard(client redis.UniversalClient, policy guard.Policy) *RedisGuard {
	return &RedisGuard{client: client, ttl: policy.TTL}
}

// TryMark sets the key only if it does not exist
func (g *RedisGuard) TryMark(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, fmt.Errorf("request_id cannot be empty")
	}

	ok, err := g.client.SetNX(ctx, redisKeyPrefix+requestID, time.Now().UTC().Format(time.RFC3339Nano), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark request id: %w", err)
	}
	return ok, nil
}

// Unmark deletes the key
func (g *RedisGuard) Unmark(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("request_id cannot be empty")
	}

	if err := g.client.Del(ctx, redisKeyPrefix+requestID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to unmark request id: %w", err)
	}
	return nil
}

// IsMarked checks whether the key exists
func (g *RedisGuard) IsMarked(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}

	n, err := g.client.Exists(ctx, redisKeyPrefix+requestID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check request id: %w", err)
	}
	return n > 0, nil
}
