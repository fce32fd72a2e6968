package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total number of card gateway requests",
	}, []string{
		"operation", // authorize, continue, reverse, void
		"outcome",   // approved, declined, step_up_required, timeout, error
	})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of card gateway requests in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	paymentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Total number of payment state transitions",
	}, []string{
		"from",
		"to",
	})

	stepupChallengesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepup_challenges_total",
		Help: "Total number of step-up challenges by final result",
	}, []string{
		"result", // completed, abandoned
	})

	traceAllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trace_allocations_total",
		Help: "Total number of trace numbers allocated",
	})
)

// RecordGatewayCall records one gateway round trip
func RecordGatewayCall(operation, outcome string, elapsed time.Duration) {
	gatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordTransition records a payment state transition
func RecordTransition(from, to string) {
	paymentTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordStepUp records the final result of a step-up challenge
func RecordStepUp(result string) {
	stepupChallengesTotal.WithLabelValues(result).Inc()
}

// RecordTraceAllocation records one allocated trace number
func RecordTraceAllocation() {
	traceAllocationsTotal.Inc()
}
