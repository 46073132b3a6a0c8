// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"context"
	"time"

	"github.com/LerianStudio/dispatcher/pkg/constant"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// RetryObserver is invoked before each wait between attempts. attempt is the
// 1-based index of the upcoming retry and delay is the interval the policy is
// about to sleep.
type RetryObserver func(attempt int, delay time.Duration)

// RetryPolicy retries an operation with exponential backoff: retry n waits
// 2^(n-1) seconds, so the delays are 1s, 2s, 4s, and so on. The operation is
// invoked at most maxRetries+1 times and the error from the final attempt is
// surfaced unchanged. The policy holds no state between invocations.
type RetryPolicy struct {
	maxRetries int
	observer   RetryObserver
	timer      backoff.Timer
}

// RetryOption configures a RetryPolicy at construction.
type RetryOption func(*RetryPolicy)

// WithRetryObserver registers the observer notified before each wait.
func WithRetryObserver(observer RetryObserver) RetryOption {
	return func(p *RetryPolicy) {
		p.observer = observer
	}
}

// WithRetryTimer replaces the waiting primitive. Tests use it to make the
// backoff sleeps instantaneous.
func WithRetryTimer(timer backoff.Timer) RetryOption {
	return func(p *RetryPolicy) {
		p.timer = timer
	}
}

// NewRetryPolicy creates a policy allowing maxRetries additional attempts
// after the initial call. maxRetries must not be negative.
func NewRetryPolicy(maxRetries int, opts ...RetryOption) (*RetryPolicy, error) {
	if maxRetries < 0 {
		return nil, errors.Errorf("retry: maxRetries must not be negative, got %d", maxRetries)
	}

	p := &RetryPolicy{
		maxRetries: maxRetries,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// MaxRetries returns the configured retry budget.
func (p *RetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// WithObserver returns a copy of the policy with observer registered in place
// of any existing one. The policy is stateless, so the copy is cheap and the
// receiver is left untouched.
func (p *RetryPolicy) WithObserver(observer RetryObserver) *RetryPolicy {
	clone := *p
	clone.observer = observer

	return &clone
}

// Execute runs operation under the policy, sleeping between attempts.
func (p *RetryPolicy) Execute(operation func() error) error {
	return p.run(context.Background(), operation)
}

// ExecuteContext behaves exactly like Execute, but the wait between attempts
// is abandoned when ctx is done.
func (p *RetryPolicy) ExecuteContext(ctx context.Context, operation func() error) error {
	return p.run(ctx, operation)
}

func (p *RetryPolicy) run(ctx context.Context, operation func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = constant.RetryInitialBackoff
	eb.RandomizationFactor = 0
	eb.Multiplier = constant.RetryBackoffFactor
	eb.MaxInterval = constant.RetryMaxBackoff
	eb.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.maxRetries)), ctx)

	attempt := 0
	notify := func(_ error, delay time.Duration) {
		attempt++

		if p.observer != nil {
			p.observer(attempt, delay)
		}
	}

	if p.timer != nil {
		return backoff.RetryNotifyWithTimer(operation, policy, notify, p.timer)
	}

	return backoff.RetryNotify(operation, policy, notify)
}
