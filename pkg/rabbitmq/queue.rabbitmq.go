// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package rabbitmq

import (
	"context"
	"encoding/json"

	"github.com/LerianStudio/dispatcher/pkg/model"
	"github.com/LerianStudio/dispatcher/pkg/queue"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageQueueRabbitMQRepository is a RabbitMQ-backed implementation of the
// message queue abstraction. Messages travel as UTF-8 JSON bodies using the
// snapshot field schema, with the message id and timestamp mirrored into the
// AMQP properties. Deduplication is delegated to upstream publishers; the
// broker enforces no per-id uniqueness.
type MessageQueueRabbitMQRepository struct {
	conn *QueueConnection
}

// Compile-time interface satisfaction check.
var _ queue.MessageQueue = (*MessageQueueRabbitMQRepository)(nil)

// NewMessageQueueRabbitMQ returns a queue backed by the given connection,
// establishing it eagerly so transport failures surface at startup.
func NewMessageQueueRabbitMQ(c *QueueConnection) (*MessageQueueRabbitMQRepository, error) {
	if _, err := c.Channel(); err != nil {
		return nil, err
	}

	return &MessageQueueRabbitMQRepository{conn: c}, nil
}

// Enqueue publishes msg to the main queue and blocks until the broker has
// accepted the publish.
func (r *MessageQueueRabbitMQRepository) Enqueue(ctx context.Context, msg *model.Message) error {
	msg.Status = model.StatusSent

	return r.publish(ctx, r.conn.QueueName, msg)
}

// Dequeue fetches the oldest message from the main queue, or nil when the
// queue is empty.
func (r *MessageQueueRabbitMQRepository) Dequeue(ctx context.Context) (*model.Message, error) {
	return r.get(r.conn.QueueName)
}

// Depth returns the number of messages resident in the main queue.
func (r *MessageQueueRabbitMQRepository) Depth(ctx context.Context) (int, error) {
	return r.depth(r.conn.QueueName)
}

// EnqueueDLQ publishes msg to the dead-letter queue.
func (r *MessageQueueRabbitMQRepository) EnqueueDLQ(ctx context.Context, msg *model.Message) error {
	return r.publish(ctx, r.conn.DLQName, msg)
}

// DequeueDLQ fetches the oldest dead-lettered message, or nil when empty.
func (r *MessageQueueRabbitMQRepository) DequeueDLQ(ctx context.Context) (*model.Message, error) {
	return r.get(r.conn.DLQName)
}

// DLQDepth returns the number of messages resident in the dead-letter queue.
func (r *MessageQueueRabbitMQRepository) DLQDepth(ctx context.Context) (int, error) {
	return r.depth(r.conn.DLQName)
}

func (r *MessageQueueRabbitMQRepository) publish(ctx context.Context, queueName string, msg *model.Message) error {
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "rabbitmq: marshalling message")
	}

	confirmation, err := channel.PublishWithDeferredConfirmWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID.String(),
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "rabbitmq: publishing to %s", queueName)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-confirmation.Done():
		if !confirmation.Acked() {
			return errors.Errorf("rabbitmq: broker rejected publish to %s", queueName)
		}
	}

	return nil
}

func (r *MessageQueueRabbitMQRepository) get(queueName string) (*model.Message, error) {
	channel, err := r.conn.Channel()
	if err != nil {
		return nil, err
	}

	delivery, ok, err := channel.Get(queueName, true)
	if err != nil {
		return nil, errors.Wrapf(err, "rabbitmq: fetching from %s", queueName)
	}

	if !ok {
		return nil, nil
	}

	var msg model.Message
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		return nil, errors.Wrapf(err, "rabbitmq: unmarshalling message from %s", queueName)
	}

	return &msg, nil
}

func (r *MessageQueueRabbitMQRepository) depth(queueName string) (int, error) {
	channel, err := r.conn.Channel()
	if err != nil {
		return 0, err
	}

	state, err := channel.QueueInspect(queueName)
	if err != nil {
		return 0, errors.Wrapf(err, "rabbitmq: inspecting queue %s", queueName)
	}

	return state.Messages, nil
}
