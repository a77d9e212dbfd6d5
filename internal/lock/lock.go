// Package lock provides a Redis lease that keeps a named job from running on
// more than one replica at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the lease.
var ErrNotAcquired = errors.New("lock: held by another owner")

const keyPrefix = "sanmon:job:"

// Only the owner's token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out leases stored as Redis keys with a TTL.
type RedisLocker struct {
	rdb redis.UniversalClient
}

// NewRedisLocker creates a RedisLocker on rdb.
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// Lease is a held lock. It expires on its own after the TTL if never released.
type Lease struct {
	rdb   redis.UniversalClient
	key   string
	token string
}

// Acquire takes the lease for name or fails with ErrNotAcquired.
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lease{rdb: l.rdb, key: key, token: token}, nil
}

// Release drops the lease if it is still ours. Releasing an expired or
// foreign lease is not an error.
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
