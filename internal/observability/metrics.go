// Package observability exposes the gateway's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_admissions_total",
		Help: "Admission pipeline outcomes by result.",
	}, []string{"outcome"})

	routingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_routing_decisions_total",
		Help: "Routing decisions by category and strategy.",
	}, []string{"category", "strategy"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatgate_handler_duration_seconds",
		Help:    "Per-category handler latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent", "status"})

	injectionConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatgate_injection_confidence",
		Help:    "Confidence scores of rejected prompt-injection attempts.",
		Buckets: []float64{0.3, 0.5, 0.6, 0.9, 1.0},
	})
)

// RecordAdmission counts one admission outcome: "admitted" or a
// rejection kind.
func RecordAdmission(outcome string) {
	admissions.WithLabelValues(outcome).Inc()
}

// RecordRoutingDecision counts one classifier verdict.
func RecordRoutingDecision(category, strategy string) {
	routingDecisions.WithLabelValues(category, strategy).Inc()
}

// RecordHandlerDuration observes one handler call.
func RecordHandlerDuration(agent string, elapsed time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	handlerDuration.WithLabelValues(agent, status).Observe(elapsed.Seconds())
}

// RecordInjectionConfidence observes a rejected injection attempt's score.
func RecordInjectionConfidence(confidence float64) {
	injectionConfidence.Observe(confidence)
}
