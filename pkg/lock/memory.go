package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker within a single process. It gives the same
// guarantees as RedisLocker but only among goroutines sharing the instance.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]heldLock
	now  func() time.Time
}

type heldLock struct {
	token     string
	expiresAt time.Time
}

// NewMemoryLocker creates an in-process locker. now may be nil.
func NewMemoryLocker(now func() time.Time) *MemoryLocker {
	if now == nil {
		now = time.Now
	}
	return &MemoryLocker{
		held: make(map[string]heldLock),
		now:  now,
	}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration, opts AcquireOptions) (Lock, bool, error) {
	token := NewToken()

	ok, err := acquireWithRetry(ctx, opts, func(ctx context.Context) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return l.setIfAbsent(key, token, ttl), nil
	})
	if err != nil {
		lockAcquireTotal.WithLabelValues("error").Inc()
		return Lock{}, false, err
	}
	if !ok {
		lockAcquireTotal.WithLabelValues("contended").Inc()
		return Lock{}, false, nil
	}

	lockAcquireTotal.WithLabelValues("acquired").Inc()
	return Lock{Key: key, Token: token, TTL: ttl}, true, nil
}

// Release implements Locker.
func (l *MemoryLocker) Release(ctx context.Context, key, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		lockReleaseTotal.WithLabelValues("error").Inc()
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.held[key]
	if !ok || current.token != token || !l.now().Before(current.expiresAt) {
		lockReleaseTotal.WithLabelValues("not_owner").Inc()
		return false, nil
	}
	delete(l.held, key)
	lockReleaseTotal.WithLabelValues("released").Inc()
	return true, nil
}

// Holder returns the token currently holding key, if any.
func (l *MemoryLocker) Holder(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.held[key]
	if !ok || !l.now().Before(current.expiresAt) {
		return "", false
	}
	return current.token, true
}

func (l *MemoryLocker) setIfAbsent(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, ok := l.held[key]; ok && now.Before(current.expiresAt) {
		return false
	}
	l.held[key] = heldLock{token: token, expiresAt: now.Add(ttl)}
	return true
}
