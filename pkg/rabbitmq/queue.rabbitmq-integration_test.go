//go:build integration

// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package rabbitmq

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/LerianStudio/dispatcher/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

var amqpURL string

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start RabbitMQ: %v\n", err)
		os.Exit(1)
	}

	amqpURL, err = container.AmqpURL(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve AMQP URL: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()

	_ = container.Terminate(cleanupCtx)

	os.Exit(code)
}

// newBrokerQueue builds a queue over a uniquely named RabbitMQ queue so tests
// do not observe each other's messages.
func newBrokerQueue(t *testing.T) *MessageQueueRabbitMQRepository {
	t.Helper()

	conn := NewQueueConnection(amqpURL, "dispatcher-test-"+uuid.NewString(), nil)
	t.Cleanup(func() { _ = conn.Close() })

	q, err := NewMessageQueueRabbitMQ(conn)
	require.NoError(t, err)

	return q
}

func TestBrokerQueue_EnqueueDequeueRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := newBrokerQueue(t)

	msg := model.NewMessage("TestSystem", "Test payload")

	require.NoError(t, q.Enqueue(ctx, msg))
	assert.Equal(t, model.StatusSent, msg.Status)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, msg.ID, got.ID)
	assert.True(t, msg.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, msg.SourceSystem, got.SourceSystem)
	assert.Equal(t, msg.Payload, got.Payload)
	assert.Equal(t, model.StatusSent, got.Status)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestBrokerQueue_FIFOOrdering(t *testing.T) {
	ctx := context.Background()
	q := newBrokerQueue(t)

	var ids []uuid.UUID

	for i := 0; i < 3; i++ {
		msg := model.NewMessage("TestSystem", fmt.Sprintf("payload %d", i))
		ids = append(ids, msg.ID)
		require.NoError(t, q.Enqueue(ctx, msg))
	}

	for _, want := range ids {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, got.ID)
	}
}

func TestBrokerQueue_DequeueEmpty(t *testing.T) {
	q := newBrokerQueue(t)

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBrokerQueue_DLQRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := newBrokerQueue(t)

	msg := model.NewMessage("TestSystem", "poison payload")
	msg.Status = model.StatusFailed

	require.NoError(t, q.EnqueueDLQ(ctx, msg))

	// The main queue is untouched by a dead-letter enqueue.
	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	dlqDepth, err := q.DLQDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dlqDepth)

	got, err := q.DequeueDLQ(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, model.StatusFailed, got.Status)
}
