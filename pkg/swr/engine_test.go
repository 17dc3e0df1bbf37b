package swr

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/cache"
	"github.com/Sternrassler/storefront-cache/pkg/lock"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// versionedProducer returns {"version": n} on its n-th call.
type versionedProducer struct {
	calls atomic.Int32
}

type payload struct {
	Version int32 `json:"version"`
}

func (p *versionedProducer) Produce(context.Context) (any, error) {
	return payload{Version: p.calls.Add(1)}, nil
}

func (p *versionedProducer) Calls() int {
	return int(p.calls.Load())
}

// basicStore hides every optional capability of the wrapped store.
type basicStore struct {
	cache.Store
}

// failingStore fails every operation.
type failingStore struct{}

var errBackendDown = errors.New("backend down")

func (failingStore) Has(context.Context, string) (bool, error) { return false, errBackendDown }
func (failingStore) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errBackendDown
}
func (failingStore) Put(context.Context, cache.Entry) error { return errBackendDown }
func (failingStore) Forget(context.Context, string) error   { return errBackendDown }
func (failingStore) Name() string                           { return "failing" }

const homepageTTL = 3600 * time.Second

func fastLockOptions() lock.AcquireOptions {
	return lock.AcquireOptions{MaxRetries: 1, RetryBackoff: time.Millisecond}
}

func newMemoryEngine(t *testing.T, opts ...Option) (*Engine, *cache.TaggedMemoryStore, *lock.MemoryLocker, *testClock) {
	t.Helper()
	clock := newTestClock()
	store := cache.NewTaggedMemoryStore(cache.WithClock(clock.Now))
	locker := lock.NewMemoryLocker(nil)
	opts = append([]Option{WithLockOptions(fastLockOptions())}, opts...)
	e := New(store, locker, opts...)
	t.Cleanup(e.Wait)
	return e, store, locker, clock
}

func decodeVersion(t *testing.T, res Result) int32 {
	t.Helper()
	var p payload
	if err := res.Decode(&p); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return p.Version
}

func TestNew_Panics(t *testing.T) {
	tests := []struct {
		name   string
		store  cache.Store
		locker lock.Locker
	}{
		{name: "nil store", store: nil, locker: lock.NewMemoryLocker(nil)},
		{name: "nil locker", store: cache.NewMemoryStore(), locker: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("New() should panic")
				}
			}()
			New(tt.store, tt.locker)
		})
	}
}

func TestNew_ProbesCapabilities(t *testing.T) {
	tests := []struct {
		name  string
		store cache.Store
		want  cache.Capabilities
	}{
		{name: "tagged", store: cache.NewTaggedMemoryStore(), want: cache.Capabilities{Tags: true, TTL: true, Patterns: true}},
		{name: "memory", store: cache.NewMemoryStore(), want: cache.Capabilities{TTL: true, Patterns: true}},
		{name: "basic", store: basicStore{cache.NewMemoryStore()}, want: cache.Capabilities{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.store, lock.NewMemoryLocker(nil))
			if got := e.Capabilities(); got != tt.want {
				t.Errorf("Capabilities() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGetOrRefresh_ColdMissThenHit(t *testing.T) {
	e, store, _, _ := newMemoryEngine(t)
	ctx := context.Background()
	p := &versionedProducer{}

	first, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce)
	if err != nil {
		t.Fatalf("GetOrRefresh() error = %v", err)
	}
	if first.Hit {
		t.Error("first call should be a miss")
	}
	if p.Calls() != 1 {
		t.Errorf("producer calls = %d, want 1", p.Calls())
	}
	if first.TTL != homepageTTL {
		t.Errorf("TTL = %v, want %v", first.TTL, homepageTTL)
	}

	if ok, _ := store.Has(ctx, "homepage_data"); !ok {
		t.Fatal("value was not stored")
	}

	second, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce)
	if err != nil {
		t.Fatalf("GetOrRefresh() error = %v", err)
	}
	if !second.Hit {
		t.Error("second call should be a hit")
	}
	if second.Stale || second.RefreshTriggered {
		t.Errorf("fresh hit reported stale=%v refresh=%v", second.Stale, second.RefreshTriggered)
	}
	if string(second.Value) != string(first.Value) {
		t.Errorf("Value = %s, want %s", second.Value, first.Value)
	}

	e.Wait()
	if p.Calls() != 1 {
		t.Errorf("producer calls after hit = %d, want 1", p.Calls())
	}
}

func TestGetOrRefresh_RefreshThreshold(t *testing.T) {
	tests := []struct {
		name        string
		elapsed     time.Duration
		threshold   int
		wantStale   bool
		wantVersion int32 // after the background refresh settles
	}{
		{name: "fresh", elapsed: 1000 * time.Second, wantStale: false, wantVersion: 1},
		{name: "exactly at threshold", elapsed: 3240 * time.Second, wantStale: false, wantVersion: 1},
		{name: "300s of 3600s remaining", elapsed: 3300 * time.Second, wantStale: true, wantVersion: 2},
		{name: "custom threshold 50%", elapsed: 2000 * time.Second, threshold: 50, wantStale: true, wantVersion: 2},
		{name: "custom threshold 5%", elapsed: 3300 * time.Second, threshold: 5, wantStale: false, wantVersion: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _, clock := newMemoryEngine(t)
			ctx := context.Background()
			p := &versionedProducer{}

			var opts []CallOption
			if tt.threshold > 0 {
				opts = append(opts, WithRefreshThreshold(tt.threshold))
			}

			if _, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce, opts...); err != nil {
				t.Fatalf("cold GetOrRefresh() error = %v", err)
			}
			clock.Advance(tt.elapsed)

			res, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce, opts...)
			if err != nil {
				t.Fatalf("GetOrRefresh() error = %v", err)
			}
			if !res.Hit {
				t.Fatal("expected a hit")
			}
			if res.Stale != tt.wantStale {
				t.Errorf("Stale = %v, want %v", res.Stale, tt.wantStale)
			}
			if res.RefreshTriggered != tt.wantStale {
				t.Errorf("RefreshTriggered = %v, want %v", res.RefreshTriggered, tt.wantStale)
			}
			// The caller always gets the old value
			if v := decodeVersion(t, res); v != 1 {
				t.Errorf("returned version = %d, want 1", v)
			}

			e.Wait()
			after, _ := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce, opts...)
			if v := decodeVersion(t, after); v != tt.wantVersion {
				t.Errorf("stored version after refresh = %d, want %d", v, tt.wantVersion)
			}
		})
	}
}

func TestGetOrRefresh_ConcurrentStaleCallersRefreshOnce(t *testing.T) {
	e, _, _, clock := newMemoryEngine(t)
	ctx := context.Background()

	if _, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, (&versionedProducer{}).Produce); err != nil {
		t.Fatalf("cold GetOrRefresh() error = %v", err)
	}
	clock.Advance(3300 * time.Second)

	refresher := &versionedProducer{}
	const callers = 32
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		stale atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, refresher.Produce)
			if err != nil {
				t.Errorf("GetOrRefresh() error = %v", err)
				return
			}
			if !res.Hit {
				t.Error("aging entry should still be served from cache")
			}
			if res.Stale {
				stale.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	e.Wait()

	if stale.Load() == 0 {
		t.Fatal("no caller observed the aging entry")
	}
	if got := refresher.Calls(); got != 1 {
		t.Errorf("background producer calls = %d, want exactly 1", got)
	}
}

func TestGetOrRefresh_LockHeldElsewhereSkipsRefresh(t *testing.T) {
	e, _, locker, clock := newMemoryEngine(t)
	ctx := context.Background()
	p := &versionedProducer{}

	if _, err := e.GetOrRefresh(ctx, "categories_tree", homepageTTL, p.Produce); err != nil {
		t.Fatalf("cold GetOrRefresh() error = %v", err)
	}
	clock.Advance(3500 * time.Second)

	// Another worker is already refreshing
	if _, ok, _ := locker.Acquire(ctx, RefreshLockKey("categories_tree"), time.Minute, fastLockOptions()); !ok {
		t.Fatal("could not pre-acquire refresh lock")
	}

	res, err := e.GetOrRefresh(ctx, "categories_tree", homepageTTL, p.Produce)
	if err != nil {
		t.Fatalf("GetOrRefresh() error = %v", err)
	}
	if !res.Stale {
		t.Error("expected stale hit")
	}
	e.Wait()

	if p.Calls() != 1 {
		t.Errorf("producer calls = %d, want 1 (refresh skipped)", p.Calls())
	}
}

func TestGetOrRefresh_BackgroundFailureReleasesLock(t *testing.T) {
	tests := []struct {
		name    string
		produce Producer
	}{
		{
			name: "error",
			produce: func(context.Context) (any, error) {
				return nil, errors.New("catalog unavailable")
			},
		},
		{
			name: "panic",
			produce: func(context.Context) (any, error) {
				panic("nil catalog")
			},
		},
		{
			name: "unencodable value",
			produce: func(context.Context) (any, error) {
				return make(chan int), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, locker, clock := newMemoryEngine(t)
			ctx := context.Background()

			if _, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, (&versionedProducer{}).Produce); err != nil {
				t.Fatalf("cold GetOrRefresh() error = %v", err)
			}
			clock.Advance(3300 * time.Second)

			res, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, tt.produce)
			if err != nil {
				t.Fatalf("GetOrRefresh() error = %v, background failures must not surface", err)
			}
			if !res.RefreshTriggered {
				t.Fatal("expected a background refresh")
			}
			e.Wait()

			if holder, held := locker.Holder(RefreshLockKey("homepage_data")); held {
				t.Errorf("refresh lock still held by %s", holder)
			}

			// Old value survives the failed refresh
			again, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, (&versionedProducer{}).Produce, WithRefreshThreshold(1))
			if err != nil || !again.Hit {
				t.Fatalf("GetOrRefresh() = %+v, %v; want the old value", again, err)
			}
			if v := decodeVersion(t, again); v != 1 {
				t.Errorf("version = %d, want 1", v)
			}
		})
	}
}

func TestGetOrRefresh_RefreshOutlivesRequestContext(t *testing.T) {
	e, _, _, clock := newMemoryEngine(t)

	if _, err := e.GetOrRefresh(context.Background(), "homepage_data", homepageTTL, (&versionedProducer{}).Produce); err != nil {
		t.Fatalf("cold GetOrRefresh() error = %v", err)
	}
	clock.Advance(3300 * time.Second)

	var refreshErr atomic.Value
	started := make(chan struct{})
	produce := func(ctx context.Context) (any, error) {
		<-started
		if err := ctx.Err(); err != nil {
			refreshErr.Store(err)
			return nil, err
		}
		return payload{Version: 2}, nil
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	res, err := e.GetOrRefresh(reqCtx, "homepage_data", homepageTTL, produce)
	if err != nil || !res.RefreshTriggered {
		t.Fatalf("GetOrRefresh() = %+v, %v", res, err)
	}

	// The request finishes before the refresh runs
	cancel()
	close(started)
	e.Wait()

	if v := refreshErr.Load(); v != nil {
		t.Fatalf("refresh saw cancelled context: %v", v)
	}
	after, _ := e.GetOrRefresh(context.Background(), "homepage_data", homepageTTL, produce)
	if v := decodeVersion(t, after); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
}

func TestGetOrRefresh_ProducerErrorOnColdMiss(t *testing.T) {
	cause := errors.New("catalog unavailable")

	tests := []struct {
		name    string
		produce Producer
		cause   error
	}{
		{
			name:    "error",
			produce: func(context.Context) (any, error) { return nil, cause },
			cause:   cause,
		},
		{
			name:    "panic",
			produce: func(context.Context) (any, error) { panic("boom") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, _, _ := newMemoryEngine(t)
			ctx := context.Background()

			_, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, tt.produce)
			if !errors.Is(err, ErrProducer) {
				t.Fatalf("error = %v, want ErrProducer", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("error = %v, want wrapped %v", err, tt.cause)
			}
			if ok, _ := store.Has(ctx, "homepage_data"); ok {
				t.Error("failed producer result was cached")
			}
		})
	}
}

func TestGetOrRefresh_InvalidArguments(t *testing.T) {
	e, _, _, _ := newMemoryEngine(t)
	p := &versionedProducer{}

	tests := []struct {
		name    string
		key     string
		ttl     time.Duration
		wantErr error
	}{
		{name: "empty key", key: "", ttl: time.Minute, wantErr: ErrEmptyKey},
		{name: "zero ttl", key: "k", ttl: 0, wantErr: cache.ErrInvalidTTL},
		{name: "sub-second ttl", key: "k", ttl: 500 * time.Millisecond, wantErr: cache.ErrInvalidTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.GetOrRefresh(context.Background(), tt.key, tt.ttl, p.Produce)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if p.Calls() != 0 {
		t.Errorf("producer calls = %d, want 0", p.Calls())
	}
}

func TestGetOrRefresh_FailOpen(t *testing.T) {
	e := New(failingStore{}, lock.NewMemoryLocker(nil))
	ctx := context.Background()
	p := &versionedProducer{}

	for i := 1; i <= 3; i++ {
		res, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce)
		if err != nil {
			t.Fatalf("call %d: error = %v, store failures must not surface", i, err)
		}
		if res.Hit {
			t.Errorf("call %d: Hit = true on a failing store", i)
		}
		if v := decodeVersion(t, res); v != int32(i) {
			t.Errorf("call %d: version = %d, want %d", i, v, i)
		}
	}
	if p.Calls() != 3 {
		t.Errorf("producer calls = %d, want 3", p.Calls())
	}
}

func TestGetOrRefresh_UnknownTTLSkipsRefresh(t *testing.T) {
	clock := newTestClock()
	mem := cache.NewMemoryStore(cache.WithClock(clock.Now))
	e := New(basicStore{mem}, lock.NewMemoryLocker(nil))
	ctx := context.Background()
	p := &versionedProducer{}

	if _, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce); err != nil {
		t.Fatalf("cold GetOrRefresh() error = %v", err)
	}
	clock.Advance(3590 * time.Second)

	res, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce)
	if err != nil {
		t.Fatalf("GetOrRefresh() error = %v", err)
	}
	if !res.Hit || res.Stale || res.RefreshTriggered {
		t.Errorf("Result = %+v, want plain hit without refresh", res)
	}
	e.Wait()
	if p.Calls() != 1 {
		t.Errorf("producer calls = %d, want 1", p.Calls())
	}
}

func TestGetOrRefresh_Tags(t *testing.T) {
	t.Run("tagged store records tags", func(t *testing.T) {
		e, store, _, _ := newMemoryEngine(t)
		ctx := context.Background()
		p := &versionedProducer{}

		if _, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce, WithTags("homepage", "frontend")); err != nil {
			t.Fatalf("GetOrRefresh() error = %v", err)
		}
		if _, err := e.GetOrRefresh(ctx, "categories_tree", homepageTTL, p.Produce, WithTags("categories")); err != nil {
			t.Fatalf("GetOrRefresh() error = %v", err)
		}

		n, err := store.FlushTags(ctx, "homepage")
		if err != nil || n != 1 {
			t.Fatalf("FlushTags() = %d, %v; want 1", n, err)
		}
		if ok, _ := store.Has(ctx, "homepage_data"); ok {
			t.Error("tagged entry survived flush")
		}
		if ok, _ := store.Has(ctx, "categories_tree"); !ok {
			t.Error("differently tagged entry was flushed")
		}
	})

	t.Run("untagged store caches without tags", func(t *testing.T) {
		store := cache.NewMemoryStore()
		e := New(store, lock.NewMemoryLocker(nil))
		ctx := context.Background()
		p := &versionedProducer{}

		if _, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce, WithTags("homepage")); err != nil {
			t.Fatalf("GetOrRefresh() error = %v", err)
		}
		res, err := e.GetOrRefresh(ctx, "homepage_data", homepageTTL, p.Produce, WithTags("homepage"))
		if err != nil || !res.Hit {
			t.Errorf("GetOrRefresh() = %+v, %v; want hit", res, err)
		}
	})
}

func TestGetOrRefresh_ColdMisses(t *testing.T) {
	const callers = 8

	tests := []struct {
		name      string
		opts      []Option
		wantCalls int
	}{
		{name: "uncoalesced calls producer per caller", wantCalls: callers},
		{name: "coalesced calls producer once", opts: []Option{WithColdMissCoalescing()}, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _, _ := newMemoryEngine(t, tt.opts...)
			ctx := context.Background()

			var calls atomic.Int32
			gate := make(chan struct{})
			produce := func(context.Context) (any, error) {
				calls.Add(1)
				<-gate
				return payload{Version: 1}, nil
			}

			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := e.GetOrRefresh(ctx, "products_type_tshirt", 10*time.Minute, produce)
					if err != nil {
						t.Errorf("GetOrRefresh() error = %v", err)
						return
					}
					if v := decodeVersion(t, res); v != 1 {
						t.Errorf("version = %d, want 1", v)
					}
				}()
			}

			// Hold the producers until every caller is inside one
			deadline := time.Now().Add(2 * time.Second)
			for int(calls.Load()) < tt.wantCalls && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			time.Sleep(20 * time.Millisecond)
			close(gate)
			wg.Wait()

			if got := int(calls.Load()); got != tt.wantCalls {
				t.Errorf("producer calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestGetOrRefresh_RefreshPoolFull(t *testing.T) {
	e, _, _, clock := newMemoryEngine(t, WithMaxConcurrentRefreshes(1))
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		if _, err := e.GetOrRefresh(ctx, key, homepageTTL, (&versionedProducer{}).Produce); err != nil {
			t.Fatalf("cold GetOrRefresh(%s) error = %v", key, err)
		}
	}
	clock.Advance(3300 * time.Second)

	gate := make(chan struct{})
	slow := func(context.Context) (any, error) {
		<-gate
		return payload{Version: 2}, nil
	}

	first, _ := e.GetOrRefresh(ctx, "a", homepageTTL, slow)
	second, _ := e.GetOrRefresh(ctx, "b", homepageTTL, slow)
	close(gate)
	e.Wait()

	if !first.RefreshTriggered {
		t.Error("first refresh should start")
	}
	if !second.Stale || second.RefreshTriggered {
		t.Errorf("second = stale %v refresh %v; want stale without refresh", second.Stale, second.RefreshTriggered)
	}
}

func TestRemember(t *testing.T) {
	e, _, _, clock := newMemoryEngine(t)
	ctx := context.Background()
	p := &versionedProducer{}

	first, err := e.Remember(ctx, "settings", time.Hour, p.Produce)
	if err != nil || first.Hit {
		t.Fatalf("Remember() = %+v, %v; want miss", first, err)
	}

	clock.Advance(59 * time.Minute)
	second, err := e.Remember(ctx, "settings", time.Hour, p.Produce)
	if err != nil || !second.Hit {
		t.Fatalf("Remember() = %+v, %v; want hit", second, err)
	}
	if second.Stale || second.RefreshTriggered {
		t.Error("Remember() must not refresh in the background")
	}

	e.Wait()
	if p.Calls() != 1 {
		t.Errorf("producer calls = %d, want 1", p.Calls())
	}

	clock.Advance(2 * time.Minute)
	third, _ := e.Remember(ctx, "settings", time.Hour, p.Produce)
	if third.Hit {
		t.Error("expired entry should be recomputed")
	}
}

type category struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Children []category `json:"children,omitempty"`
}

func TestFetch(t *testing.T) {
	e, _, _, _ := newMemoryEngine(t)
	ctx := context.Background()

	calls := 0
	produce := func(context.Context) ([]category, error) {
		calls++
		return []category{{ID: 1, Name: "Apparel", Children: []category{{ID: 2, Name: "Shirts"}}}}, nil
	}

	tree, res, err := Fetch(ctx, e, "categories_tree", time.Hour, produce, WithTags("categories"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Hit {
		t.Error("first Fetch should miss")
	}
	if len(tree) != 1 || tree[0].Children[0].Name != "Shirts" {
		t.Errorf("Fetch() = %+v", tree)
	}

	cached, res, err := Fetch(ctx, e, "categories_tree", time.Hour, produce)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !res.Hit || calls != 1 {
		t.Errorf("Hit = %v, calls = %d; want cached", res.Hit, calls)
	}
	if cached[0].Name != "Apparel" {
		t.Errorf("cached = %+v", cached)
	}
}

func TestFetch_DecodeMismatch(t *testing.T) {
	e, store, _, _ := newMemoryEngine(t)
	ctx := context.Background()

	entry, err := cache.NewEntry("shape", map[string]string{"a": "b"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatal(err)
	}

	_, _, err = Fetch(ctx, e, "shape", time.Hour, func(context.Context) ([]int, error) { return nil, nil })
	if err == nil {
		t.Error("Fetch() should fail to decode an object into a slice")
	}
}

func TestResult_Decode(t *testing.T) {
	res := Result{Value: json.RawMessage(`{"version":7}`)}
	var p payload
	if err := res.Decode(&p); err != nil || p.Version != 7 {
		t.Errorf("Decode() = %+v, %v", p, err)
	}
	if err := (Result{Value: json.RawMessage(`{`)}).Decode(&p); err == nil {
		t.Error("Decode() of invalid JSON should fail")
	}
}

func TestRefreshLockKey(t *testing.T) {
	if got := RefreshLockKey("homepage_data"); got != "lock:refresh:homepage_data" {
		t.Errorf("RefreshLockKey() = %q", got)
	}
}
