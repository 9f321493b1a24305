package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the view cache.
var (
	viewRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overflow_cache_view_requests_total",
		Help: "View cache lookups by result (hit, miss, bypass)",
	}, []string{"result"})

	tagsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overflow_cache_tags_fired_total",
		Help: "Cache tags invalidated, by tag kind",
	}, []string{"kind"})

	backendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overflow_cache_backend_errors_total",
		Help: "Cache backend failures by operation",
	}, []string{"op"})
)
