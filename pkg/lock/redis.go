package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the lock only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLocker implements Locker on a Redis server shared by all workers.
type RedisLocker struct {
	redis  redis.UniversalClient
	logger zerolog.Logger
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(redisClient redis.UniversalClient, logger zerolog.Logger) *RedisLocker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisLocker{
		redis:  redisClient,
		logger: logger,
	}
}

// Acquire implements Locker using SET NX PX.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration, opts AcquireOptions) (Lock, bool, error) {
	token := NewToken()

	ok, err := acquireWithRetry(ctx, opts, func(ctx context.Context) (bool, error) {
		acquired, err := l.redis.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("redis setnx: %w", err)
		}
		return acquired, nil
	})
	if err != nil {
		lockAcquireTotal.WithLabelValues("error").Inc()
		return Lock{}, false, err
	}
	if !ok {
		lockAcquireTotal.WithLabelValues("contended").Inc()
		l.logger.Debug().
			Str("lock_key", key).
			Int("attempts", opts.MaxRetries).
			Msg("Lock held by another worker")
		return Lock{}, false, nil
	}

	lockAcquireTotal.WithLabelValues("acquired").Inc()
	l.logger.Debug().Str("lock_key", key).Dur("ttl", ttl).Msg("Lock acquired")
	return Lock{Key: key, Token: token, TTL: ttl}, true, nil
}

// Release implements Locker with a compare-and-delete Lua script.
func (l *RedisLocker) Release(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, l.redis, []string{key}, token).Int64()
	if err != nil {
		lockReleaseTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("redis release %s: %w", key, err)
	}
	if n != 1 {
		lockReleaseTotal.WithLabelValues("not_owner").Inc()
		l.logger.Warn().Str("lock_key", key).Msg("Lock not released: expired or held by another worker")
		return false, nil
	}

	lockReleaseTotal.WithLabelValues("released").Inc()
	return true, nil
}
