// Package metrics defines the Prometheus collectors for the runner.
// Everything is registered on the default registry via promauto and served
// by the /metrics route in internal/server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for ExecutionsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeNonZero  = "nonzero_exit"
	OutcomeTimeout  = "timeout"
	OutcomeFault    = "fault"
	OutcomeRejected = "rejected"
)

var (
	// ExecutionsTotal counts gate outcomes by kind (run/install).
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyrunner_executions_total",
		Help: "Execution gate outcomes by kind and result.",
	}, []string{"kind", "outcome"})

	// RateLimitRejections counts requests denied by an admission policy.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyrunner_rate_limit_rejections_total",
		Help: "Requests rejected by the sliding-window rate limiter.",
	}, []string{"endpoint"})

	// ExecutionDuration tracks child process wall-clock time.
	ExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyrunner_execution_duration_seconds",
		Help:    "Wall-clock duration of child processes.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})
)
