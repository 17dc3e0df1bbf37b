package lock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for lock operations.
var (
	lockAcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_lock_acquire_total",
		Help: "Total lock acquisition outcomes",
	}, []string{"result"}) // "acquired", "contended", "error"

	lockReleaseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_lock_release_total",
		Help: "Total lock release outcomes",
	}, []string{"result"}) // "released", "not_owner", "error"
)
