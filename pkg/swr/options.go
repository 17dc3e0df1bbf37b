package swr

import (
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/lock"
	"github.com/rs/zerolog"
)

// Engine defaults.
const (
	DefaultRefreshThreshold       = 10 // percent of the entry TTL
	DefaultOpTimeout              = 500 * time.Millisecond
	DefaultRefreshTimeout         = 60 * time.Second
	DefaultMaxConcurrentRefreshes = 64
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger (default: disabled).
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLockTTL sets how long a refresh lock is held at most.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithLockOptions sets the retry behaviour used to acquire refresh locks.
func WithLockOptions(opts lock.AcquireOptions) Option {
	return func(e *Engine) {
		e.lockOpts = opts
	}
}

// WithOpTimeout bounds every individual store and lock call.
func WithOpTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.opTimeout = timeout
		}
	}
}

// WithRefreshTimeout bounds a whole background refresh, producer included.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.refreshTimeout = timeout
		}
	}
}

// WithMaxConcurrentRefreshes caps the number of background refreshes in
// flight. Refreshes beyond the cap are skipped.
func WithMaxConcurrentRefreshes(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxRefreshes = max
		}
	}
}

// WithDefaultRefreshThreshold changes the threshold used when a call does not
// pass WithRefreshThreshold.
func WithDefaultRefreshThreshold(percent int) Option {
	return func(e *Engine) {
		if percent > 0 && percent <= 100 {
			e.threshold = percent
		}
	}
}

// WithColdMissCoalescing collapses concurrent cold misses for the same key
// inside this process into a single producer call.
func WithColdMissCoalescing() Option {
	return func(e *Engine) {
		e.coalesce = true
	}
}

// CallOption configures a single GetOrRefresh or Remember call.
type CallOption func(*callConfig)

type callConfig struct {
	tags      []string
	threshold int
}

// WithTags attaches tags to the stored entry when the store supports them.
func WithTags(tags ...string) CallOption {
	return func(c *callConfig) {
		c.tags = append(c.tags, tags...)
	}
}

// WithRefreshThreshold sets the remaining-TTL percentage below which a hit
// triggers a background refresh.
func WithRefreshThreshold(percent int) CallOption {
	return func(c *callConfig) {
		if percent > 0 && percent <= 100 {
			c.threshold = percent
		}
	}
}
