// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"time"

	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/constant"
	"github.com/LerianStudio/dispatcher/pkg/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ProcessOne dequeues and handles a single message. The returned error is
// non-nil only for infrastructure failures the worker has no quarantine plan
// for (queue or store breakage); a message-level failure is reported as
// ResultFailed with the message parked in the DLQ.
func (uc *UseCase) ProcessOne(ctx context.Context) (Result, error) {
	msg, err := uc.Queue.Dequeue(ctx)
	if err != nil {
		return ResultNoWork, err
	}

	if msg == nil {
		return ResultNoWork, nil
	}

	if !msg.IsValid() {
		uc.logger.Warnf("Message %s failed validation, moving to DLQ", msg.ID)

		return uc.quarantineInvalid(ctx, msg)
	}

	if err := uc.Audit.LogStart(ctx, msg.ID); err != nil {
		return ResultFailed, err
	}

	record := uc.Transform(msg)

	commitErr := uc.commit(ctx, msg.ID, record)
	if commitErr == nil {
		if err := uc.Audit.LogEnd(ctx, msg.ID, true, ""); err != nil {
			return ResultProcessed, err
		}

		uc.logger.Infof("Message %s processed", msg.ID)

		return ResultProcessed, nil
	}

	return uc.quarantineFailed(ctx, msg, commitErr)
}

// quarantineInvalid parks a message that failed validation: no retry and no
// sink call, but the audit trail still gets one completed row.
func (uc *UseCase) quarantineInvalid(ctx context.Context, msg *model.Message) (Result, error) {
	msg.Status = model.StatusFailed

	if err := uc.Queue.EnqueueDLQ(ctx, msg); err != nil {
		return ResultFailed, err
	}

	if err := uc.Audit.LogStart(ctx, msg.ID); err != nil {
		return ResultFailed, err
	}

	if err := uc.Audit.LogEnd(ctx, msg.ID, false, constant.AuditErrValidationFailed); err != nil {
		return ResultFailed, err
	}

	return ResultFailed, nil
}

// quarantineFailed parks a message whose commit failed for good: retries were
// exhausted, the breaker was open or the sink error is not retryable.
func (uc *UseCase) quarantineFailed(ctx context.Context, msg *model.Message, commitErr error) (Result, error) {
	msg.Status = model.StatusFailed

	if err := uc.Queue.EnqueueDLQ(ctx, msg); err != nil {
		return ResultFailed, err
	}

	if err := uc.ErrorLog.Write(msg.ID.String(), 0, commitErr); err != nil {
		return ResultFailed, err
	}

	auditMessage := commitErr.Error()
	if errors.Is(commitErr, pkg.ErrCircuitOpen) {
		auditMessage = constant.AuditErrCircuitOpen
	}

	if err := uc.Audit.LogEnd(ctx, msg.ID, false, auditMessage); err != nil {
		return ResultFailed, err
	}

	uc.logger.Warnf("Message %s moved to DLQ: %v", msg.ID, commitErr)

	return ResultFailed, nil
}

// commit writes the record to the sink through the circuit breaker (when
// configured) around the retry policy (when configured). Every failed attempt
// is recorded in the error log before the retry policy decides what to do,
// and each scheduled retry is announced there before the wait.
func (uc *UseCase) commit(ctx context.Context, id uuid.UUID, record *model.ProcessedMessage) error {
	attempt := 0

	save := func() error {
		record.Status = model.StatusCompleted

		if err := uc.Processed.Save(ctx, record); err != nil {
			_ = uc.ErrorLog.Write(id.String(), attempt, err)
			attempt++

			return err
		}

		return nil
	}

	commitOp := save

	if uc.retry != nil {
		policy := uc.retry.WithObserver(func(retryAttempt int, delay time.Duration) {
			_ = uc.ErrorLog.WriteRetryScheduled(id.String(), retryAttempt, delay)
		})

		commitOp = func() error {
			return policy.ExecuteContext(ctx, save)
		}
	}

	if uc.breaker != nil {
		inner := commitOp

		commitOp = func() error {
			return uc.breaker.Execute(inner)
		}
	}

	return commitOp()
}

// ProcessUpTo runs ProcessOne at most n times, stopping early when the main
// queue drains. It returns the number of messages handled.
func (uc *UseCase) ProcessUpTo(ctx context.Context, n int) (int, error) {
	handled := 0

	for i := 0; i < n; i++ {
		result, err := uc.ProcessOne(ctx)
		if err != nil {
			return handled, err
		}

		if result == ResultNoWork {
			break
		}

		handled++
	}

	return handled, nil
}

// ProcessAll reads the queue depth once and handles that many messages.
// Messages enqueued while the loop runs are left for the next invocation.
func (uc *UseCase) ProcessAll(ctx context.Context) (int, error) {
	depth, err := uc.Queue.Depth(ctx)
	if err != nil {
		return 0, err
	}

	return uc.ProcessUpTo(ctx, depth)
}
