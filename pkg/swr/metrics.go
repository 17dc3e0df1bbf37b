package swr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts GetOrRefresh outcomes
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_swr_requests_total",
			Help: "Total number of stale-while-revalidate lookups by outcome",
		},
		[]string{"result"}, // "hit", "stale", "miss", "error"
	)

	// RefreshTotal counts background refresh outcomes
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_swr_refresh_total",
			Help: "Total number of background refreshes by outcome",
		},
		[]string{"result"}, // "refreshed", "skipped_locked", "skipped_fresh", "skipped_busy", "failed"
	)

	// ProducerDuration tracks how long producers take
	ProducerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_swr_producer_duration_seconds",
			Help:    "Producer execution time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"}, // "cold", "background"
	)

	// RefreshesInFlight tracks running background refreshes
	RefreshesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_swr_refreshes_in_flight",
			Help: "Number of background refreshes currently running",
		},
	)
)
