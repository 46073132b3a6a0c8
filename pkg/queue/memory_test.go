// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalQueue_EnqueueDequeueFIFO(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewLocalQueue()

	first := model.NewMessage("sys", "one")
	second := model.NewMessage("sys", "two")
	third := model.NewMessage("sys", "three")

	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))
	require.NoError(t, q.Enqueue(ctx, third))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, depth)

	for _, want := range []*model.Message{first, second, third} {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
	}

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestLocalQueue_EnqueueSetsStatusSent(t *testing.T) {
	t.Parallel()

	q := NewLocalQueue()
	msg := model.NewMessage("sys", "payload")

	require.NoError(t, q.Enqueue(context.Background(), msg))
	assert.Equal(t, model.StatusSent, msg.Status)
}

func TestLocalQueue_DequeueEmpty(t *testing.T) {
	t.Parallel()

	q := NewLocalQueue()

	msg, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestLocalQueue_DuplicateEnqueueRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewLocalQueue()
	msg := model.NewMessage("sys", "payload")

	require.NoError(t, q.Enqueue(ctx, msg))

	err := q.Enqueue(ctx, msg)
	require.Error(t, err)
	assert.True(t, pkg.IsDuplicateMessage(err))

	// The queue is unchanged by the rejected enqueue.
	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestLocalQueue_DequeuePrunesDedupSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewLocalQueue()
	msg := model.NewMessage("sys", "payload")

	require.NoError(t, q.Enqueue(ctx, msg))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, msg.ID, got.ID)

	// The same id is accepted again once it left the main queue.
	require.NoError(t, q.Enqueue(ctx, msg))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestLocalQueue_DLQAcceptsDuplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewLocalQueue()
	msg := model.NewMessage("sys", "payload")

	require.NoError(t, q.EnqueueDLQ(ctx, msg))
	require.NoError(t, q.EnqueueDLQ(ctx, msg))

	depth, err := q.DLQDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	first, err := q.DequeueDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, first.ID)
}

func TestLocalQueue_DLQDequeueEmpty(t *testing.T) {
	t.Parallel()

	q := NewLocalQueue()

	msg, err := q.DequeueDLQ(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestLocalQueue_DepthInvariantUnderConcurrency(t *testing.T) {
	t.Parallel()

	const (
		producers       = 8
		perProducer     = 50
		totalEnqueued   = producers * perProducer
		consumerWorkers = 4
	)

	ctx := context.Background()
	q := NewLocalQueue()

	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Enqueue(ctx, model.NewMessage("sys", "payload")))
			}
		}()
	}

	wg.Wait()

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	require.Equal(t, totalEnqueued, depth)

	var dequeued int64

	counts := make(chan int, consumerWorkers)

	for c := 0; c < consumerWorkers; c++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			n := 0

			for {
				msg, err := q.Dequeue(ctx)
				assert.NoError(t, err)

				if err != nil || msg == nil {
					break
				}

				n++
			}

			counts <- n
		}()
	}

	wg.Wait()
	close(counts)

	for n := range counts {
		dequeued += int64(n)
	}

	assert.Equal(t, int64(totalEnqueued), dequeued)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}
