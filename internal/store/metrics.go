package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcomes recorded in BatchesTotal.
const (
	OutcomeCommitted  = "committed"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
)

// Prometheus metrics shared by store implementations.
var (
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overflow_store_batches_total",
		Help: "Batches finished, by outcome and failure class",
	}, []string{"outcome", "failure"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overflow_store_batch_duration_seconds",
		Help:    "Time spent applying and committing a batch",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	})

	BatchOps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overflow_store_batch_ops",
		Help:    "Operations per committed batch",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})
)
