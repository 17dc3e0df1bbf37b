// Package metrics provides the Prometheus registry and scrape handler for the
// storefront cache.
// All metrics are defined in their respective packages (cache, lock, swr)
// to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the storefront cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry scraped by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Store Metrics (pkg/cache):
//   - storefront_cache_hits_total{store} (Counter): Cache hits by backend
//   - storefront_cache_misses_total{store} (Counter): Cache misses by backend
//   - storefront_cache_errors_total{store, operation} (Counter): Backend errors by operation
//   - storefront_cache_tag_flushes_total{store} (Counter): Entries removed by tag flushes
//
// Lock Metrics (pkg/lock):
//   - storefront_lock_acquire_total{result} (Counter): acquired, contended, error
//   - storefront_lock_release_total{result} (Counter): released, not_owner, error
//
// Stale-While-Revalidate Metrics (pkg/swr):
//   - storefront_swr_requests_total{result} (Counter): hit, stale, miss, error
//   - storefront_swr_refresh_total{result} (Counter): refreshed, skipped_locked,
//     skipped_fresh, skipped_busy, failed
//   - storefront_swr_producer_duration_seconds{path} (Histogram): cold, background
//   - storefront_swr_refreshes_in_flight (Gauge): Running background refreshes
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate (stale hits included)
//   sum(rate(storefront_swr_requests_total{result=~"hit|stale"}[5m])) /
//   sum(rate(storefront_swr_requests_total[5m]))
//
//   # Lock Contention
//   rate(storefront_lock_acquire_total{result="contended"}[5m])
//
//   # Failed Refreshes
//   rate(storefront_swr_refresh_total{result="failed"}[5m])
//
//   # P95 Cold-Miss Producer Latency
//   histogram_quantile(0.95, rate(storefront_swr_producer_duration_seconds_bucket{path="cold"}[5m]))
