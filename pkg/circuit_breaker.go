// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"sync"
	"time"

	"github.com/LerianStudio/dispatcher/pkg/constant"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreaker guards a failure-prone collaborator with a three-state
// failure-count machine. In the closed state every call executes and
// consecutive failures are counted; reaching the threshold opens the circuit.
// An open circuit rejects calls with ErrCircuitOpen until the timeout has
// elapsed, then admits a single probe: success closes the circuit, failure
// re-opens it.
type CircuitBreaker struct {
	name             string
	failureThreshold uint32
	timeout          time.Duration
	logger           *zap.SugaredLogger

	mu      sync.RWMutex
	breaker *gobreaker.CircuitBreaker
}

// CircuitBreakerOption configures a CircuitBreaker at construction.
type CircuitBreakerOption func(*CircuitBreaker)

// WithBreakerName sets the name reported on state changes.
func WithBreakerName(name string) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.name = name
	}
}

// WithBreakerLogger sets the logger notified on state changes.
func WithBreakerLogger(logger *zap.SugaredLogger) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.logger = logger
	}
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures and stays open for at least timeout. failureThreshold
// must be positive and timeout must not be negative.
func NewCircuitBreaker(failureThreshold int, timeout time.Duration, opts ...CircuitBreakerOption) (*CircuitBreaker, error) {
	if failureThreshold <= 0 {
		return nil, errors.Errorf("circuit breaker: failureThreshold must be positive, got %d", failureThreshold)
	}

	if timeout < 0 {
		return nil, errors.Errorf("circuit breaker: timeout must not be negative, got %s", timeout)
	}

	cb := &CircuitBreaker{
		name:             "circuit-breaker",
		failureThreshold: uint32(failureThreshold),
		timeout:          timeout,
		logger:           zap.NewNop().Sugar(),
	}

	for _, opt := range opts {
		opt(cb)
	}

	cb.breaker = cb.newInner()

	return cb, nil
}

// newInner builds the underlying gobreaker instance. MaxRequests of one keeps
// the half-open state to a single probe call.
func (cb *CircuitBreaker) newInner() *gobreaker.CircuitBreaker {
	// gobreaker replaces a non-positive Timeout with its own 60s default;
	// clamp a configured zero to the smallest positive interval instead.
	timeout := cb.timeout
	if timeout == 0 {
		timeout = time.Nanosecond
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cb.name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cb.failureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cb.logger.Warnf("Circuit breaker [%s] state changed: %s -> %s", name, from.String(), to.String())
		},
	})
}

// Execute runs action through the breaker. When the circuit refuses the call,
// ErrCircuitOpen is returned and the action is not invoked; otherwise the
// action's error is surfaced unchanged after failure accounting.
func (cb *CircuitBreaker) Execute(action func() error) error {
	cb.mu.RLock()
	inner := cb.breaker
	cb.mu.RUnlock()

	_, err := inner.Execute(func() (any, error) {
		return nil, action()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}

	return err
}

// State returns the current state name. The read observes the post-transition
// state of any call that already returned.
func (cb *CircuitBreaker) State() string {
	cb.mu.RLock()
	inner := cb.breaker
	cb.mu.RUnlock()

	switch inner.State() {
	case gobreaker.StateClosed:
		return constant.CircuitBreakerStateClosed
	case gobreaker.StateHalfOpen:
		return constant.CircuitBreakerStateHalfOpen
	case gobreaker.StateOpen:
		return constant.CircuitBreakerStateOpen
	default:
		return "unknown"
	}
}

// FailureCount returns the current number of consecutive failures.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.RLock()
	inner := cb.breaker
	cb.mu.RUnlock()

	return int(inner.Counts().ConsecutiveFailures)
}

// Reset returns the breaker to the closed state with a zeroed counter by
// swapping in a fresh instance.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.breaker = cb.newInner()
}
