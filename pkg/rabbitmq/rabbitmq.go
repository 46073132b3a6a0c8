// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package rabbitmq adapts the message queue abstraction to a RabbitMQ broker.
package rabbitmq

import (
	"sync"

	"github.com/LerianStudio/dispatcher/pkg/constant"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// QueueConnection manages the AMQP connection and channel for one main queue
// and its dead-letter sibling. The channel runs in publisher-confirm mode so
// producers block until the broker has accepted a publish.
type QueueConnection struct {
	URI       string
	QueueName string
	DLQName   string
	Logger    *zap.SugaredLogger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewQueueConnection creates a connection descriptor for uri and queueName.
// The DLQ name is derived by appending the dead-letter suffix. Connection is
// established lazily on first use.
func NewQueueConnection(uri, queueName string, logger *zap.SugaredLogger) *QueueConnection {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &QueueConnection{
		URI:       uri,
		QueueName: queueName,
		DLQName:   queueName + constant.DLQSuffix,
		Logger:    logger,
	}
}

// Channel returns a live confirming channel, dialing the broker and declaring
// both queues on first use or after a dropped connection.
func (c *QueueConnection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && c.conn != nil && !c.conn.IsClosed() && !c.channel.IsClosed() {
		return c.channel, nil
	}

	conn, err := amqp.Dial(c.URI)
	if err != nil {
		return nil, errors.Wrap(err, "rabbitmq: dialing broker")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbitmq: opening channel")
	}

	if err := channel.Confirm(false); err != nil {
		_ = channel.Close()
		_ = conn.Close()

		return nil, errors.Wrap(err, "rabbitmq: enabling publisher confirms")
	}

	for _, queue := range []string{c.QueueName, c.DLQName} {
		if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = channel.Close()
			_ = conn.Close()

			return nil, errors.Wrapf(err, "rabbitmq: declaring queue %s", queue)
		}
	}

	c.Logger.Infof("Connected to RabbitMQ, queues %s and %s declared", c.QueueName, c.DLQName)

	c.conn = conn
	c.channel = channel

	return c.channel, nil
}

// Close shuts down the channel and connection.
func (c *QueueConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}

	if c.conn != nil && !c.conn.IsClosed() {
		err := c.conn.Close()
		c.conn = nil

		return err
	}

	c.conn = nil

	return nil
}
