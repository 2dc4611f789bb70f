package circuitbreaker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageCircuitBreaker gates writes to fill storage. After a run of
// consecutive failures it opens and drops writes for a cooldown period, so a
// dead database does not stall the matching hot path. A single successful
// probe after the cooldown closes it again.
type StorageCircuitBreaker struct {
	closed atomic.Bool // Atomic for lock-free reads

	// Configuration
	failureThreshold int
	cooldown         time.Duration
	logger           *zap.Logger

	// Protected by mutex
	mu                  sync.Mutex
	consecutiveFailures int
	openedAt            time.Time
	probing             bool
}

// Config holds circuit breaker configuration.
type Config struct {
	FailureThreshold int
	Cooldown         time.Duration
	Logger           *zap.Logger
}

// Status holds current circuit breaker status for debugging.
type Status struct {
	Closed              bool
	ConsecutiveFailures int
	OpenedAt            time.Time
}

// New creates a new circuit breaker with the given configuration.
func New(cfg *Config) (*StorageCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive")
	}

	breaker := &StorageCircuitBreaker{
		failureThreshold: cfg.FailureThreshold,
		cooldown:         cfg.Cooldown,
		logger:           cfg.Logger,
	}

	// Start closed
	breaker.closed.Store(true)

	CircuitBreakerClosed.Set(1)
	CircuitBreakerConsecutiveFailures.Set(0)

	return breaker, nil
}

// Allow reports whether a write should be attempted. While the breaker is
// open it returns false until the cooldown elapses, then lets exactly one
// probe write through.
func (b *StorageCircuitBreaker) Allow() bool {
	if b.closed.Load() {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.probing || time.Since(b.openedAt) < b.cooldown {
		return false
	}
	b.probing = true
	return true
}

// RecordSuccess resets the failure streak and closes the breaker if it was
// open.
func (b *StorageCircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.probing = false
	CircuitBreakerConsecutiveFailures.Set(0)

	if !b.closed.Load() {
		b.closed.Store(true)
		CircuitBreakerClosed.Set(1)
		CircuitBreakerStateChanges.Inc()
		b.logger.Info("storage-breaker-closed")
	}
}

// RecordFailure counts a failed write and opens the breaker once the streak
// reaches the threshold. A failed probe re-arms the cooldown.
func (b *StorageCircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.probing = false
	CircuitBreakerConsecutiveFailures.Set(float64(b.consecutiveFailures))

	if !b.closed.Load() {
		// Probe failed, push the next probe out by a full cooldown.
		b.openedAt = time.Now()
		return
	}

	if b.consecutiveFailures >= b.failureThreshold {
		b.closed.Store(false)
		b.openedAt = time.Now()
		CircuitBreakerClosed.Set(0)
		CircuitBreakerStateChanges.Inc()
		b.logger.Warn("storage-breaker-opened",
			zap.Int("consecutive_failures", b.consecutiveFailures),
			zap.Duration("cooldown", b.cooldown))
	}
}

// Status returns a snapshot of the breaker state.
func (b *StorageCircuitBreaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		Closed:              b.closed.Load(),
		ConsecutiveFailures: b.consecutiveFailures,
		OpenedAt:            b.openedAt,
	}
}
