// Package cache provides the key-value store abstraction used by the
// storefront caching core.
//
// Every backend implements Store (has/get/put/forget). Optional capabilities
// are expressed as separate interfaces and detected once with Probe:
//
//   - TTLInspector - remaining TTL introspection (needed for stale-while-revalidate)
//   - TaggableStore - tag grouping for bulk invalidation
//   - PatternDeleter - key enumeration by glob pattern
//
// # Backends
//
//	// Redis (all capabilities)
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewRedisStore(redisClient)
//
//	// In-memory without tags (tag invalidation degrades to a logged no-op)
//	store := cache.NewMemoryStore()
//
//	// In-memory with a tag index
//	store := cache.NewTaggedMemoryStore()
//
// # Entries
//
// Values are stored as a JSON envelope (Entry) carrying the encoded value, the
// TTL it was stored with, the time it was stored and its tags. A missing key
// is reported as found == false, never as an error.
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - storefront_cache_hits_total{store} - Cache hits
//   - storefront_cache_misses_total{store} - Cache misses
//   - storefront_cache_errors_total{store,operation} - Backend errors
//   - storefront_cache_tag_flushes_total{store} - Keys removed by tag flushes
package cache
