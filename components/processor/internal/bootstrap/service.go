// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	"context"

	"github.com/LerianStudio/dispatcher/components/processor/internal/services"
	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/errlog"
	"github.com/LerianStudio/dispatcher/pkg/model"
	"github.com/LerianStudio/dispatcher/pkg/queue"
	"github.com/LerianStudio/dispatcher/pkg/rabbitmq"
	"github.com/LerianStudio/dispatcher/pkg/snapshot"
	"github.com/LerianStudio/dispatcher/pkg/sqlite"
	"github.com/LerianStudio/dispatcher/pkg/sqlite/audit"
	"github.com/LerianStudio/dispatcher/pkg/sqlite/processed"

	"go.uber.org/zap"
)

// Service is the processor glue holding the assembled worker and the
// resources it drains.
type Service struct {
	Config  *Config
	Logger  *zap.SugaredLogger
	UseCase *services.UseCase

	messageQueue queue.MessageQueue
	auditRepo    audit.Repository
	snapshots    *snapshot.Store
	sqliteConn   *sqlite.Connection
	rabbitConn   *rabbitmq.QueueConnection
}

// InitProcessor wires the worker and its collaborators. With useRabbitMQ the
// transport is the broker adapter; otherwise messages are recovered from the
// snapshot file into a local queue.
func InitProcessor(cfg *Config, useRabbitMQ bool, logger *zap.SugaredLogger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqliteConn := sqlite.NewConnection(cfg.SQLitePath, logger)

	processedRepo, err := processed.NewProcessedMessageSQLiteRepository(sqliteConn)
	if err != nil {
		return nil, err
	}

	auditRepo, err := audit.NewAuditLogSQLiteRepository(sqliteConn)
	if err != nil {
		return nil, err
	}

	errorLog, err := errlog.New(cfg.ErrorLogPath)
	if err != nil {
		return nil, err
	}

	retryPolicy, err := pkg.NewRetryPolicy(cfg.MaxRetries)
	if err != nil {
		return nil, err
	}

	breaker, err := pkg.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout,
		pkg.WithBreakerName("sink"),
		pkg.WithBreakerLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	app := &Service{
		Config:     cfg,
		Logger:     logger,
		sqliteConn: sqliteConn,
	}

	if useRabbitMQ {
		app.rabbitConn = rabbitmq.NewQueueConnection(cfg.RabbitURI, cfg.QueueName, logger)

		brokerQueue, err := rabbitmq.NewMessageQueueRabbitMQ(app.rabbitConn)
		if err != nil {
			return nil, err
		}

		app.messageQueue = brokerQueue
	} else {
		store, err := snapshot.New(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}

		local := queue.NewLocalQueue()

		if err := recoverFromSnapshot(store, local, logger); err != nil {
			return nil, err
		}

		app.snapshots = store
		app.messageQueue = local
	}

	app.auditRepo = auditRepo
	app.UseCase = services.NewUseCase(app.messageQueue, processedRepo, auditRepo, errorLog,
		services.WithRetryPolicy(retryPolicy),
		services.WithCircuitBreaker(breaker),
		services.WithLogger(logger),
	)

	return app, nil
}

// recoverFromSnapshot republishes the snapshotted messages onto the local
// queue. Duplicate ids within the snapshot are skipped.
func recoverFromSnapshot(store *snapshot.Store, local *queue.LocalQueue, logger *zap.SugaredLogger) error {
	messages, err := store.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	for _, msg := range messages {
		if err := local.Enqueue(ctx, msg); err != nil {
			if pkg.IsDuplicateMessage(err) {
				logger.Warnf("Skipping duplicate snapshot message %s", msg.ID)
				continue
			}

			return err
		}
	}

	logger.Infof("Recovered %d message(s) from snapshot", len(messages))

	return nil
}

// Run drains the queue: the depth is sampled once and that many messages are
// processed, so a concurrent producer never extends the drain. Per-message
// failures are recorded and do not terminate the loop. After the drain the
// audit summary is logged and, in local mode, the messages left behind are
// snapshotted again.
func (app *Service) Run(ctx context.Context) error {
	defer app.close()

	depth, err := app.messageQueue.Depth(ctx)
	if err != nil {
		return err
	}

	app.Logger.Infof("Draining %d message(s) from queue", depth)

	processedCount := 0
	failedCount := 0

	for i := 0; i < depth; i++ {
		result, err := app.UseCase.ProcessOne(ctx)
		if err != nil {
			failedCount++

			app.Logger.Errorf("Processing error: %v", err)

			continue
		}

		if result == services.ResultNoWork {
			break
		}

		if result == services.ResultProcessed {
			processedCount++
		} else {
			failedCount++
		}

		app.Logger.Infof("Message %d/%d: %s", i+1, depth, result)
	}

	dlqDepth, err := app.messageQueue.DLQDepth(ctx)
	if err != nil {
		app.Logger.Errorf("Reading DLQ depth: %v", err)
	}

	app.Logger.Infof("Drain complete: %d processed, %d failed, %d in DLQ", processedCount, failedCount, dlqDepth)

	app.logAuditSummary(ctx)

	if app.snapshots != nil {
		if err := app.persistRemaining(ctx); err != nil {
			app.Logger.Errorf("Persisting snapshot: %v", err)
		}
	}

	return nil
}

// logAuditSummary reports the aggregate statistics of the audit trail.
func (app *Service) logAuditSummary(ctx context.Context) {
	stats, err := app.auditRepo.Statistics(ctx)
	if err != nil {
		app.Logger.Errorf("Reading audit statistics: %v", err)
		return
	}

	app.Logger.Infof(
		"Audit summary: total=%d success=%d failure=%d successRate=%.2f%% duration avg/min/max=%.2f/%.2f/%.2f ms",
		stats.Total, stats.Success, stats.Failure, stats.SuccessRate,
		stats.AvgDurationMs, stats.MinDurationMs, stats.MaxDurationMs,
	)
}

// persistRemaining writes the messages still resident in the local queue back
// to the snapshot file so the next run can pick them up.
func (app *Service) persistRemaining(ctx context.Context) error {
	var remaining []*model.Message

	for {
		msg, err := app.messageQueue.Dequeue(ctx)
		if err != nil {
			return err
		}

		if msg == nil {
			break
		}

		remaining = append(remaining, msg)
	}

	app.Logger.Infof("Snapshotting %d unprocessed message(s)", len(remaining))

	return app.snapshots.Save(remaining)
}

func (app *Service) close() {
	if app.rabbitConn != nil {
		if err := app.rabbitConn.Close(); err != nil {
			app.Logger.Errorf("Closing RabbitMQ connection: %v", err)
		}
	}

	if app.sqliteConn != nil {
		if err := app.sqliteConn.Close(); err != nil {
			app.Logger.Errorf("Closing SQLite connection: %v", err)
		}
	}
}
