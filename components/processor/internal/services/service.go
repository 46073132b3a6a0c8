// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"time"

	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/errlog"
	"github.com/LerianStudio/dispatcher/pkg/queue"
	"github.com/LerianStudio/dispatcher/pkg/sqlite/audit"
	"github.com/LerianStudio/dispatcher/pkg/sqlite/processed"

	"go.uber.org/zap"
)

// Result is the outcome of one ProcessOne invocation.
type Result int

const (
	// ResultNoWork means the main queue was empty.
	ResultNoWork Result = iota

	// ResultProcessed means the message was committed to the sink.
	ResultProcessed

	// ResultFailed means the message was quarantined in the DLQ.
	ResultFailed
)

// String returns the human-readable name of the result.
func (r Result) String() string {
	switch r {
	case ResultNoWork:
		return "NoWork"
	case ResultProcessed:
		return "Processed"
	case ResultFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// UseCase assembles the processing pipeline: it dequeues messages, validates
// and transforms them, commits records to the sink through the optional
// circuit breaker and retry policy, quarantines failures in the DLQ and keeps
// the audit trail and error log. A UseCase owns its collaborators for its
// lifetime and runs a single processing thread; the collaborators themselves
// tolerate concurrent use.
type UseCase struct {
	// Queue is the transport the worker dequeues candidate messages from.
	Queue queue.MessageQueue

	// Processed is the durable store of committed records.
	Processed processed.Repository

	// Audit records start/end timestamps and outcome per message.
	Audit audit.Repository

	// ErrorLog receives one record per failed attempt, one per scheduled
	// retry and one (attempt 0) per message moved to the DLQ after a failed
	// commit.
	ErrorLog *errlog.Logger

	retry   *pkg.RetryPolicy
	breaker *pkg.CircuitBreaker
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// UseCaseOption configures optional collaborators at construction.
type UseCaseOption func(*UseCase)

// WithRetryPolicy makes the commit retry transient sink failures.
func WithRetryPolicy(policy *pkg.RetryPolicy) UseCaseOption {
	return func(uc *UseCase) {
		uc.retry = policy
	}
}

// WithCircuitBreaker guards the commit with a circuit breaker.
func WithCircuitBreaker(breaker *pkg.CircuitBreaker) UseCaseOption {
	return func(uc *UseCase) {
		uc.breaker = breaker
	}
}

// WithLogger sets the application logger.
func WithLogger(logger *zap.SugaredLogger) UseCaseOption {
	return func(uc *UseCase) {
		uc.logger = logger
	}
}

// WithClock replaces the clock used to stamp processed records.
func WithClock(now func() time.Time) UseCaseOption {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// NewUseCase creates a worker over the given queue, sink, audit store and
// error log. Retry policy and circuit breaker are absent unless supplied.
func NewUseCase(q queue.MessageQueue, sink processed.Repository, auditStore audit.Repository, errorLog *errlog.Logger, opts ...UseCaseOption) *UseCase {
	uc := &UseCase{
		Queue:     q,
		Processed: sink,
		Audit:     auditStore,
		ErrorLog:  errorLog,
		logger:    zap.NewNop().Sugar(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
