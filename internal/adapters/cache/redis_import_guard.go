package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisImportGuard suppresses duplicate manifest submissions.
type RedisImportGuard struct {
	client *redis.Client
}

// NewRedisImportGuard creates the import duplicate guard.
func NewRedisImportGuard(client *redis.Client) *RedisImportGuard {
	return &RedisImportGuard{client: client}
}

// Reserve claims a payload fingerprint for the window. SetNX makes the
// claim atomic: exactly one of two simultaneous identical submissions wins.
func (g *RedisImportGuard) Reserve(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return g.client.SetNX(ctx, "fulfillment:import:"+fingerprint, "1", ttl).Result()
}

func (g *RedisImportGuard) Release(ctx context.Context, fingerprint string) error {
	return g.client.Del(ctx, "fulfillment:import:"+fingerprint).Err()
}
