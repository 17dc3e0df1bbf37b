package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

// MemoryStore is an in-process Store with TTL introspection and pattern
// deletion but no tag index. It is intended for tests and single-process
// deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
	name  string
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// MemoryOption configures an in-memory store.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store without tag support.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
		name:  "memory",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Store.
func (s *MemoryStore) Name() string { return s.name }

// Has implements Store.
func (s *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	return ok && s.now().Before(item.expiresAt), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}

	item, ok := s.live(key)
	if !ok {
		CacheMisses.WithLabelValues(s.name).Inc()
		return Entry{}, false, nil
	}

	entry, err := decodeEntry(item.data)
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "get").Inc()
		return Entry{}, false, err
	}
	CacheHits.WithLabelValues(s.name).Inc()
	return entry, true, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	data, err := encodeEntry(entry)
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "put").Inc()
		return err
	}

	s.mu.Lock()
	s.items[entry.Key] = memoryItem{data: data, expiresAt: s.now().Add(entry.TTL())}
	s.mu.Unlock()
	return nil
}

// Forget implements Store.
func (s *MemoryStore) Forget(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// RemainingTTL implements TTLInspector.
func (s *MemoryStore) RemainingTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	item, ok := s.live(key)
	if !ok {
		return 0, false, nil
	}
	return item.expiresAt.Sub(s.now()), true, nil
}

// DeleteByPattern implements PatternDeleter using Redis-style globs.
func (s *MemoryStore) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "delete_pattern").Inc()
		return 0, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.items {
		if g.Match(key) {
			delete(s.items, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored items, including expired ones not yet
// evicted.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// live returns the item for key, evicting it if it has expired.
func (s *MemoryStore) live(key string) (memoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !s.now().Before(item.expiresAt) {
		delete(s.items, key)
		return memoryItem{}, false
	}
	return item, true
}

// TaggedMemoryStore is a MemoryStore with a tag index. It implements
// TaggableStore.
type TaggedMemoryStore struct {
	*MemoryStore

	tagMu sync.Mutex
	tags  map[string]map[string]struct{}
}

// NewTaggedMemoryStore creates an empty in-memory store with tag support.
func NewTaggedMemoryStore(opts ...MemoryOption) *TaggedMemoryStore {
	base := NewMemoryStore(opts...)
	base.name = "memory-tagged"
	return &TaggedMemoryStore{
		MemoryStore: base,
		tags:        make(map[string]map[string]struct{}),
	}
}

// PutTagged implements TaggableStore. The entry and its tag memberships
// change together with respect to FlushTags.
func (s *TaggedMemoryStore) PutTagged(ctx context.Context, entry Entry) error {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()

	if err := s.Put(ctx, entry); err != nil {
		return err
	}
	for _, tag := range entry.Tags {
		members, ok := s.tags[tag]
		if !ok {
			members = make(map[string]struct{})
			s.tags[tag] = members
		}
		members[entry.Key] = struct{}{}
	}
	return nil
}

// FlushTags implements TaggableStore. Expired entries are dropped but not
// counted as removed.
func (s *TaggedMemoryStore) FlushTags(ctx context.Context, tags ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.tagMu.Lock()
	defer s.tagMu.Unlock()

	keys := make(map[string]struct{})
	for _, tag := range tags {
		for key := range s.tags[tag] {
			keys[key] = struct{}{}
		}
		delete(s.tags, tag)
	}

	s.mu.Lock()
	now := s.now()
	removed := 0
	for key := range keys {
		item, ok := s.items[key]
		if !ok {
			continue
		}
		delete(s.items, key)
		if now.Before(item.expiresAt) {
			removed++
		}
	}
	s.mu.Unlock()

	TagFlushes.WithLabelValues(s.name).Add(float64(removed))
	return removed, nil
}
