// Package lock implements a short-lived distributed mutual-exclusion primitive
// keyed by string.
//
// A lock is acquired with an atomic set-if-absent-with-expiry and released with
// an atomic compare-and-delete, so a slow holder whose lock already expired can
// never delete a lock that a later holder acquired.
//
// Failing to acquire is not an error: it signals that somebody else currently
// holds the lock, and callers are expected to skip their work.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Default acquisition parameters.
const (
	DefaultTTL          = 60 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 200 * time.Millisecond
)

// Lock is a held lock. Token proves ownership on release.
type Lock struct {
	Key   string
	Token string
	TTL   time.Duration
}

// AcquireOptions controls the retry behaviour of Acquire.
type AcquireOptions struct {
	// MaxRetries is the total number of attempts (values below 1 mean one attempt).
	MaxRetries int

	// RetryBackoff is the fixed sleep between attempts.
	RetryBackoff time.Duration
}

// DefaultAcquireOptions returns three attempts 200ms apart.
func DefaultAcquireOptions() AcquireOptions {
	return AcquireOptions{
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// Locker is implemented by lock backends.
type Locker interface {
	// Acquire tries to take key for ttl. ok is false when every attempt found
	// the lock held by someone else.
	Acquire(ctx context.Context, key string, ttl time.Duration, opts AcquireOptions) (lk Lock, ok bool, err error)

	// Release deletes key only if it still holds token. It reports whether the
	// lock was deleted.
	Release(ctx context.Context, key, token string) (bool, error)
}

// NewToken returns a random ownership token.
func NewToken() string {
	return uuid.NewString()
}

// tryFunc performs one atomic acquisition attempt.
type tryFunc func(ctx context.Context) (bool, error)

// acquireWithRetry runs try up to opts.MaxRetries times, sleeping
// opts.RetryBackoff between attempts. The sleep respects ctx cancellation.
func acquireWithRetry(ctx context.Context, opts AcquireOptions, try tryFunc) (bool, error) {
	attempts := opts.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := try(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		// No sleep after the final attempt
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(opts.RetryBackoff):
		}
	}

	return false, nil
}
