package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerClosed indicates whether the breaker allows storage writes.
	CircuitBreakerClosed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeflow_storage_breaker_closed",
		Help: "Whether the storage circuit breaker allows writes (1=closed, 0=open)",
	})

	// CircuitBreakerConsecutiveFailures tracks the current failure streak.
	CircuitBreakerConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeflow_storage_breaker_consecutive_failures",
		Help: "Current run of consecutive storage write failures",
	})

	// CircuitBreakerStateChanges tracks the number of times the breaker changed state.
	CircuitBreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_storage_breaker_state_changes_total",
		Help: "Total number of times the storage circuit breaker changed state (open/closed)",
	})
)
