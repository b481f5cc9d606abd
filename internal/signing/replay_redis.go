package signing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisReplayGuard shares observed signatures across server replicas.
type RedisReplayGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisReplayGuard connects to addr and pings it.
func NewRedisReplayGuard(ctx context.Context, addr, password string, db int) (*RedisReplayGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisReplayGuard{client: client, prefix: "vectra:sig:"}, nil
}

// Observe implements ReplayGuard using SETNX with an expiry.
func (g *RedisReplayGuard) Observe(ctx context.Context, signature string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+signature, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Forget implements ReplayGuard.
func (g *RedisReplayGuard) Forget(ctx context.Context, signature string) error {
	if err := g.client.Del(ctx, g.prefix+signature).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (g *RedisReplayGuard) Close() error {
	return g.client.Close()
}
