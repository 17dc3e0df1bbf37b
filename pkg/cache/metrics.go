package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by store
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_hits_total",
			Help: "Total number of storefront cache hits",
		},
		[]string{"store"}, // "redis", "memory", "memory-tagged"
	)

	// CacheMisses tracks cache misses by store
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_misses_total",
			Help: "Total number of storefront cache misses",
		},
		[]string{"store"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"store", "operation"}, // "has", "get", "put", "forget", "ttl", "flush_tags", "delete_pattern"
	)

	// TagFlushes tracks keys removed through tag invalidation
	TagFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_tag_flushes_total",
			Help: "Total number of cache keys removed by tag flushes",
		},
		[]string{"store"},
	)
)
