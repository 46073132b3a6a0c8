// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	"context"

	"github.com/LerianStudio/dispatcher/pkg/model"
	"github.com/LerianStudio/dispatcher/pkg/rabbitmq"
	"github.com/LerianStudio/dispatcher/pkg/snapshot"

	"go.uber.org/zap"
)

// Service is the publisher glue. It pushes a scripted batch of demo messages
// either onto the broker or into the snapshot file the processor recovers
// from.
type Service struct {
	Config *Config
	Logger *zap.SugaredLogger

	rabbitConn *rabbitmq.QueueConnection
}

// InitPublisher wires the publisher for the selected transport.
func InitPublisher(cfg *Config, useRabbitMQ bool, logger *zap.SugaredLogger) (*Service, error) {
	app := &Service{
		Config: cfg,
		Logger: logger,
	}

	if useRabbitMQ {
		app.rabbitConn = rabbitmq.NewQueueConnection(cfg.RabbitURI, cfg.QueueName, logger)
	}

	return app, nil
}

// buildBatch produces the scripted demo batch. The last entry is deliberately
// invalid so a full demo run exercises the DLQ.
func buildBatch() []*model.Message {
	return []*model.Message{
		model.NewMessage("OrderSystem", "Order 1001 created"),
		model.NewMessage("OrderSystem", "Order 1001 paid"),
		model.NewMessage("BillingSystem", "Invoice 77 issued"),
		model.NewMessage("InventorySystem", "SKU-42 restocked"),
		model.NewMessage("OrderSystem", "Order 1001 shipped"),
		model.NewMessage("", "Message without a source system"),
	}
}

// Run publishes the batch. On the broker transport every publish blocks until
// the broker accepts it; on the local transport the batch is appended to the
// snapshot file.
func (app *Service) Run(ctx context.Context) error {
	batch := buildBatch()

	if app.rabbitConn != nil {
		return app.publishToBroker(ctx, batch)
	}

	return app.publishToSnapshot(batch)
}

func (app *Service) publishToBroker(ctx context.Context, batch []*model.Message) error {
	defer func() {
		if err := app.rabbitConn.Close(); err != nil {
			app.Logger.Errorf("Closing RabbitMQ connection: %v", err)
		}
	}()

	brokerQueue, err := rabbitmq.NewMessageQueueRabbitMQ(app.rabbitConn)
	if err != nil {
		return err
	}

	for _, msg := range batch {
		if err := brokerQueue.Enqueue(ctx, msg); err != nil {
			return err
		}

		app.Logger.Infof("Published message %s from %q", msg.ID, msg.SourceSystem)
	}

	app.Logger.Infof("Published %d message(s) to queue %s", len(batch), app.Config.QueueName)

	return nil
}

func (app *Service) publishToSnapshot(batch []*model.Message) error {
	store, err := snapshot.New(app.Config.SnapshotPath)
	if err != nil {
		return err
	}

	existing, err := store.Load()
	if err != nil {
		return err
	}

	for _, msg := range batch {
		msg.Status = model.StatusSent
	}

	if err := store.Save(append(existing, batch...)); err != nil {
		return err
	}

	app.Logger.Infof("Wrote %d message(s) to snapshot %s (%d already pending)", len(batch), store.Path(), len(existing))

	return nil
}
