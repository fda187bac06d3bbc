// Package metrics exposes Prometheus instrumentation for portal traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courtside"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	sessionsInvalidated  prometheus.Counter
	predictionsCompleted prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	auto := promauto.With(reg)
	return &Metrics{
		requests: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "portal",
				Name:      "requests_total",
				Help:      "Portal requests by endpoint, method and outcome",
			},
			[]string{"endpoint", "method", "outcome"},
		),
		requestDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "portal",
				Name:      "request_duration_seconds",
				Help:      "Portal request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint", "method"},
		),
		sessionsInvalidated: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_invalidated_total",
			Help:      "Sessions cleared after the portal rejected the token",
		}),
		predictionsCompleted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_completed_total",
			Help:      "Predictions that reached a result",
		}),
	}
}

func (m *Metrics) ObserveRequest(endpoint, method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, method, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
}

func (m *Metrics) SessionInvalidated() {
	if m == nil {
		return
	}
	m.sessionsInvalidated.Inc()
}

func (m *Metrics) PredictionCompleted() {
	if m == nil {
		return
	}
	m.predictionsCompleted.Inc()
}
