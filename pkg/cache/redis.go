package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPrefix namespaces every key the Redis store writes
	DefaultPrefix = "storefront:"

	// DefaultTagTTL is the minimum lifetime of a tag index set
	DefaultTagTTL = 24 * time.Hour

	tagNamespace = "tag@"
	scanCount    = 100
)

// RedisStore handles caching operations with Redis backend.
// It implements Store, TTLInspector, TaggableStore and PatternDeleter.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	tagTTL time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTagTTL overrides DefaultTagTTL.
func WithTagTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.tagTTL = ttl
		}
	}
}

// NewRedisStore creates a new cache store with Redis backend.
func NewRedisStore(redisClient redis.UniversalClient, opts ...RedisOption) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	s := &RedisStore{
		redis:  redisClient,
		prefix: DefaultPrefix,
		tagTTL: DefaultTagTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// Has implements Store.
func (s *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, s.fail("has", err)
	}
	return n > 0, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(s.Name()).Inc()
			return Entry{}, false, nil
		}
		return Entry{}, false, s.fail("get", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		CacheErrors.WithLabelValues(s.Name(), "get").Inc()
		return Entry{}, false, err
	}

	CacheHits.WithLabelValues(s.Name()).Inc()
	return entry, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	data, err := s.encode(entry)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(entry.Key), data, entry.TTL()).Err(); err != nil {
		return s.fail("put", err)
	}
	return nil
}

// PutTagged implements TaggableStore. The value and its tag memberships are
// written in a single MULTI/EXEC transaction. Each tag set lives at least as
// long as its longest-lived member.
func (s *RedisStore) PutTagged(ctx context.Context, entry Entry) error {
	if len(entry.Tags) == 0 {
		return s.Put(ctx, entry)
	}

	data, err := s.encode(entry)
	if err != nil {
		return err
	}

	key := s.key(entry.Key)
	tagTTL := s.tagTTL
	if entry.TTL() > tagTTL {
		tagTTL = entry.TTL()
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, entry.TTL())
		for _, tag := range entry.Tags {
			tagKey := s.tagKey(tag)
			pipe.SAdd(ctx, tagKey, key)
			// A tag set only ever gains lifetime: NX covers a new set, GT
			// extends an existing one without shortening it.
			pipe.ExpireNX(ctx, tagKey, tagTTL)
			pipe.ExpireGT(ctx, tagKey, tagTTL)
		}
		return nil
	})
	if err != nil {
		return s.fail("put_tagged", err)
	}
	return nil
}

// FlushTags implements TaggableStore.
func (s *RedisStore) FlushTags(ctx context.Context, tags ...string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}

	seen := make(map[string]struct{})
	keys := make([]string, 0)
	tagKeys := make([]string, 0, len(tags))
	for _, tag := range tags {
		tagKey := s.tagKey(tag)
		tagKeys = append(tagKeys, tagKey)

		members, err := s.redis.SMembers(ctx, tagKey).Result()
		if err != nil {
			return 0, s.fail("flush_tags", err)
		}
		for _, member := range members {
			if _, dup := seen[member]; dup {
				continue
			}
			seen[member] = struct{}{}
			keys = append(keys, member)
		}
	}

	var removed *redis.IntCmd
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			removed = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, tagKeys...)
		return nil
	})
	if err != nil {
		return 0, s.fail("flush_tags", err)
	}

	if removed == nil {
		return 0, nil
	}
	n := int(removed.Val())
	TagFlushes.WithLabelValues(s.Name()).Add(float64(n))
	return n, nil
}

// Forget implements Store.
func (s *RedisStore) Forget(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return s.fail("forget", err)
	}
	return nil
}

// RemainingTTL implements TTLInspector using PTTL.
func (s *RedisStore) RemainingTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.redis.PTTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, false, s.fail("ttl", err)
	}
	// -2: missing key, -1: no expiry
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

// DeleteByPattern implements PatternDeleter. The glob is matched against
// logical keys; tag index sets are never removed by a pattern.
func (s *RedisStore) DeleteByPattern(ctx context.Context, glob string) (int, error) {
	match := s.prefix + glob
	tagPrefix := s.prefix + tagNamespace

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return removed, s.fail("delete_pattern", err)
		}

		batch := keys[:0]
		for _, k := range keys {
			if !strings.HasPrefix(k, tagPrefix) {
				batch = append(batch, k)
			}
		}
		if len(batch) > 0 {
			n, err := s.redis.Unlink(ctx, batch...).Result()
			if err != nil {
				return removed, s.fail("delete_pattern", err)
			}
			removed += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) tagKey(tag string) string {
	return s.prefix + tagNamespace + tag
}

func (s *RedisStore) encode(entry Entry) ([]byte, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	data, err := encodeEntry(entry)
	if err != nil {
		CacheErrors.WithLabelValues(s.Name(), "put").Inc()
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) fail(operation string, err error) error {
	CacheErrors.WithLabelValues(s.Name(), operation).Inc()
	return fmt.Errorf("redis %s: %w", operation, err)
}
