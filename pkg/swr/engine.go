// Package swr implements the stale-while-revalidate read path in front of a
// cache store.
//
// A cold miss computes the value synchronously and stores it. A hit returns
// the cached value at once; when the entry's remaining TTL has fallen below a
// threshold percentage of its TTL, one background refresh is started. The
// refresh is guarded by a distributed lock so that only one worker in the
// whole deployment recomputes an aging entry.
//
// The engine fails open: store and lock errors are logged and degrade to a
// miss or a skipped refresh, never to a failed request.
package swr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/cache"
	"github.com/Sternrassler/storefront-cache/pkg/lock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrProducer wraps a producer failure on the synchronous miss path
	ErrProducer = errors.New("swr producer failed")

	// ErrEmptyKey is returned for calls without a cache key
	ErrEmptyKey = errors.New("swr cache key cannot be empty")
)

// refreshLockPrefix namespaces refresh locks away from cache keys.
const refreshLockPrefix = "lock:refresh:"

// RefreshLockKey returns the lock guarding background refreshes of key.
func RefreshLockKey(key string) string {
	return refreshLockPrefix + key
}

// Producer computes a fresh value. It may be called more than once for the
// same key and must be safe to call concurrently.
type Producer func(ctx context.Context) (any, error)

// Result is what a lookup returns to the caller.
type Result struct {
	// Value is the JSON-encoded value
	Value json.RawMessage

	// Hit is true when the value came from the cache
	Hit bool

	// Stale is true when the entry was aging past the refresh threshold
	Stale bool

	// RefreshTriggered is true when a background refresh was started
	RefreshTriggered bool

	// StoredAt is when the value was produced
	StoredAt time.Time

	// TTL is the lifetime the value was stored with
	TTL time.Duration
}

// Decode unmarshals the value into v.
func (r Result) Decode(v any) error {
	if err := json.Unmarshal(r.Value, v); err != nil {
		return fmt.Errorf("decode cached value: %w", err)
	}
	return nil
}

// Engine serves reads through a cache store with stale-while-revalidate
// semantics. All methods are safe for concurrent use.
type Engine struct {
	store  cache.Store
	tagged cache.TaggableStore // nil when the store has no tag index
	ttls   cache.TTLInspector  // nil when the store cannot report TTLs
	caps   cache.Capabilities
	locker lock.Locker
	logger zerolog.Logger

	lockTTL        time.Duration
	lockOpts       lock.AcquireOptions
	opTimeout      time.Duration
	refreshTimeout time.Duration
	threshold      int
	maxRefreshes   int
	coalesce       bool

	sem   chan struct{}
	group singleflight.Group
	wg    sync.WaitGroup
}

// New creates an engine. Store capabilities are probed once here.
func New(store cache.Store, locker lock.Locker, opts ...Option) *Engine {
	if store == nil {
		panic("cache store cannot be nil")
	}
	if locker == nil {
		panic("locker cannot be nil")
	}

	e := &Engine{
		store:          store,
		caps:           cache.Probe(store),
		locker:         locker,
		logger:         zerolog.Nop(),
		lockTTL:        lock.DefaultTTL,
		lockOpts:       lock.DefaultAcquireOptions(),
		opTimeout:      DefaultOpTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		threshold:      DefaultRefreshThreshold,
		maxRefreshes:   DefaultMaxConcurrentRefreshes,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.caps.Tags {
		e.tagged = store.(cache.TaggableStore)
	}
	if e.caps.TTL {
		e.ttls = store.(cache.TTLInspector)
	}
	e.sem = make(chan struct{}, e.maxRefreshes)

	e.logger.Debug().
		Str("store", store.Name()).
		Bool("tags", e.caps.Tags).
		Bool("ttl", e.caps.TTL).
		Bool("patterns", e.caps.Patterns).
		Msg("SWR engine initialised")

	return e
}

// Capabilities reports what the underlying store supports.
func (e *Engine) Capabilities() cache.Capabilities {
	return e.caps
}

// GetOrRefresh returns the cached value for key, computing it with produce on
// a miss. A hit whose remaining TTL is below the refresh threshold also
// starts a background refresh; the caller still gets the cached value.
func (e *Engine) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, produce Producer, opts ...CallOption) (Result, error) {
	cfg, err := e.callConfig(key, ttl, opts)
	if err != nil {
		return Result{}, err
	}

	entry, found := e.lookup(ctx, key)
	if !found {
		return e.coldMiss(ctx, key, ttl, produce, cfg)
	}

	res := hitResult(entry)
	if e.aging(ctx, key, ttl, cfg.threshold) {
		res.Stale = true
		res.RefreshTriggered = e.startRefresh(ctx, key, ttl, produce, cfg)
		RequestsTotal.WithLabelValues("stale").Inc()
		return res, nil
	}

	RequestsTotal.WithLabelValues("hit").Inc()
	return res, nil
}

// Remember is a plain read-through: a hit returns the cached value without
// any refresh, a miss computes and stores the value.
func (e *Engine) Remember(ctx context.Context, key string, ttl time.Duration, produce Producer, opts ...CallOption) (Result, error) {
	cfg, err := e.callConfig(key, ttl, opts)
	if err != nil {
		return Result{}, err
	}

	if entry, found := e.lookup(ctx, key); found {
		RequestsTotal.WithLabelValues("hit").Inc()
		return hitResult(entry), nil
	}
	return e.coldMiss(ctx, key, ttl, produce, cfg)
}

// Fetch is GetOrRefresh with a typed producer and a decoded result.
func Fetch[T any](ctx context.Context, e *Engine, key string, ttl time.Duration, produce func(context.Context) (T, error), opts ...CallOption) (T, Result, error) {
	var zero T

	res, err := e.GetOrRefresh(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return produce(ctx)
	}, opts...)
	if err != nil {
		return zero, res, err
	}

	var out T
	if err := res.Decode(&out); err != nil {
		return zero, res, fmt.Errorf("%s: %w", key, err)
	}
	return out, res, nil
}

// Wait blocks until every background refresh started so far has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) callConfig(key string, ttl time.Duration, opts []CallOption) (callConfig, error) {
	if key == "" {
		return callConfig{}, ErrEmptyKey
	}
	if ttl < time.Second {
		return callConfig{}, fmt.Errorf("%w: %v for %q", cache.ErrInvalidTTL, ttl, key)
	}

	cfg := callConfig{threshold: e.threshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}

func hitResult(entry cache.Entry) Result {
	return Result{
		Value:    entry.Value,
		Hit:      true,
		StoredAt: entry.StoredAt,
		TTL:      entry.TTL(),
	}
}

// lookup reads key from the store. Store failures count as a miss.
func (e *Engine) lookup(ctx context.Context, key string) (cache.Entry, bool) {
	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	entry, found, err := e.store.Get(opCtx, key)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("key", key).
			Str("store", e.store.Name()).
			Msg("Cache read failed, treating as miss")
		return cache.Entry{}, false
	}
	return entry, found
}

// aging reports whether the remaining TTL of key is below threshold percent
// of ttl. Unknown TTLs never trigger a refresh.
func (e *Engine) aging(ctx context.Context, key string, ttl time.Duration, threshold int) bool {
	if e.ttls == nil {
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	remaining, known, err := e.ttls.RemainingTTL(opCtx, key)
	if err != nil {
		e.logger.Debug().Err(err).Str("key", key).Msg("Remaining TTL unavailable")
		return false
	}
	if !known {
		return false
	}

	limit := time.Duration(int64(ttl) * int64(threshold) / 100)
	if remaining < limit {
		e.logger.Debug().
			Str("key", key).
			Dur("remaining_ttl", remaining).
			Dur("ttl", ttl).
			Int("threshold", threshold).
			Msg("Cache entry aging")
		return true
	}
	return false
}

func (e *Engine) coldMiss(ctx context.Context, key string, ttl time.Duration, produce Producer, cfg callConfig) (Result, error) {
	if !e.coalesce {
		return e.produceAndStore(ctx, key, ttl, produce, cfg.tags)
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		return e.produceAndStore(ctx, key, ttl, produce, cfg.tags)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// produceAndStore runs produce on the caller's goroutine and stores the value.
func (e *Engine) produceAndStore(ctx context.Context, key string, ttl time.Duration, produce Producer, tags []string) (Result, error) {
	start := time.Now()
	value, err := invoke(ctx, produce)
	ProducerDuration.WithLabelValues("cold").Observe(time.Since(start).Seconds())
	if err != nil {
		RequestsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: %s: %w", ErrProducer, key, err)
	}

	entry, err := cache.NewEntry(key, value, ttl, tags...)
	if err != nil {
		RequestsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}

	if err := e.put(ctx, entry); err != nil {
		e.logger.Warn().Err(err).
			Str("key", key).
			Str("store", e.store.Name()).
			Msg("Cache write failed, serving uncached value")
	}

	RequestsTotal.WithLabelValues("miss").Inc()
	return Result{
		Value:    entry.Value,
		StoredAt: entry.StoredAt,
		TTL:      entry.TTL(),
	}, nil
}

// put writes entry, tagged when it carries tags and the store has a tag index.
func (e *Engine) put(ctx context.Context, entry cache.Entry) error {
	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	if len(entry.Tags) == 0 {
		return e.store.Put(opCtx, entry)
	}
	if e.tagged == nil {
		e.logger.Debug().
			Str("key", entry.Key).
			Strs("tags", entry.Tags).
			Str("store", e.store.Name()).
			Msg("Store does not support tags, caching untagged")
		return e.store.Put(opCtx, entry)
	}
	return e.tagged.PutTagged(opCtx, entry)
}

// startRefresh schedules a background refresh. It reports false when the
// refresh pool is full.
func (e *Engine) startRefresh(ctx context.Context, key string, ttl time.Duration, produce Producer, cfg callConfig) bool {
	select {
	case e.sem <- struct{}{}:
	default:
		RefreshTotal.WithLabelValues("skipped_busy").Inc()
		e.logger.Warn().Str("key", key).Int("max", e.maxRefreshes).Msg("Refresh pool full, skipping refresh")
		return false
	}

	// Detach from the request: the response must not wait for, or cancel, the refresh.
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.refreshTimeout)

	e.wg.Add(1)
	RefreshesInFlight.Inc()
	go func() {
		defer func() {
			cancel()
			RefreshesInFlight.Dec()
			<-e.sem
			e.wg.Done()
		}()
		e.refresh(refreshCtx, key, ttl, produce, cfg)
	}()
	return true
}

// refresh recomputes key under the refresh lock. Errors and panics are
// logged and counted, never returned.
func (e *Engine) refresh(ctx context.Context, key string, ttl time.Duration, produce Producer, cfg callConfig) {
	lockKey := RefreshLockKey(key)
	log := e.logger.With().Str("key", key).Str("lock_key", lockKey).Logger()

	lk, ok, err := e.locker.Acquire(ctx, lockKey, e.lockTTL, e.lockOpts)
	if err != nil {
		RefreshTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("Refresh lock unavailable, skipping refresh")
		return
	}
	if !ok {
		RefreshTotal.WithLabelValues("skipped_locked").Inc()
		log.Debug().Msg("Refresh already in progress elsewhere")
		return
	}
	defer e.release(lk, log)

	// Another worker may have refreshed the entry while we waited for the lock.
	if !e.aging(ctx, key, ttl, cfg.threshold) {
		if _, found := e.lookup(ctx, key); found {
			RefreshTotal.WithLabelValues("skipped_fresh").Inc()
			log.Debug().Msg("Entry already refreshed")
			return
		}
	}

	start := time.Now()
	value, err := invoke(ctx, produce)
	ProducerDuration.WithLabelValues("background").Observe(time.Since(start).Seconds())
	if err != nil {
		RefreshTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("Background refresh failed")
		return
	}

	entry, err := cache.NewEntry(key, value, ttl, cfg.tags...)
	if err != nil {
		RefreshTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("Background refresh produced an unencodable value")
		return
	}
	if err := e.put(ctx, entry); err != nil {
		RefreshTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("Background refresh could not store value")
		return
	}

	RefreshTotal.WithLabelValues("refreshed").Inc()
	log.Debug().Dur("ttl", ttl).Msg("Cache entry refreshed")
}

// release frees the refresh lock with its own deadline, so an expired
// refresh context still releases.
func (e *Engine) release(lk lock.Lock, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), e.opTimeout)
	defer cancel()

	if _, err := e.locker.Release(ctx, lk.Key, lk.Token); err != nil {
		log.Warn().Err(err).Msg("Failed to release refresh lock")
	}
}

// invoke calls produce and converts a panic into an error.
func invoke(ctx context.Context, produce Producer) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	return produce(ctx)
}
