// Package locks provides cluster-wide run guards backed by Redis.
package locks

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisGuard lets one replica run a periodic job per window. TryAcquire sets
// key with NX and a TTL, so the first replica to tick owns the window and the
// key expires on its own before the next one.
type RedisGuard struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisGuard returns a guard holding key for ttl per acquisition. ttl
// should be a little shorter than the job interval.
func NewRedisGuard(client *redis.Client, key string, ttl time.Duration) *RedisGuard {
	host, _ := os.Hostname()
	return &RedisGuard{
		client: client,
		key:    key,
		ttl:    ttl,
		owner:  fmt.Sprintf("%s/%s", host, uuid.NewString()),
	}
}

// TryAcquire reports whether this replica owns the current window.
func (g *RedisGuard) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key, g.owner, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("sweep guard %s: %w", g.key, err)
	}
	return ok, nil
}

// Owner is the value written to the key while this replica holds it.
func (g *RedisGuard) Owner() string { return g.owner }

// WindowTTL derives the guard TTL for a job running every interval.
func WindowTTL(interval time.Duration) time.Duration {
	ttl := interval - interval/10
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
