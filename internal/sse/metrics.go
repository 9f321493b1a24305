package sse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overflow_sse_clients",
		Help: "Open event streams",
	})

	eventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overflow_sse_events_total",
		Help: "Per-client event sends by event type and outcome (delivered, dropped)",
	}, []string{"type", "outcome"})
)
