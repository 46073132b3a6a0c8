// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package queue

import (
	"context"

	"github.com/LerianStudio/dispatcher/pkg/model"
)

// MessageQueue abstracts a main FIFO queue with a dead-letter sibling. The
// worker programs only against this interface; implementations range from a
// process-local queue to a durable broker.
type MessageQueue interface {
	// Enqueue appends a message to the main queue. It returns a
	// pkg.DuplicateMessageError when a message with the same id is already
	// resident in the main queue, leaving the queue unchanged.
	Enqueue(ctx context.Context, msg *model.Message) error

	// Dequeue removes and returns the oldest message from the main queue.
	// It returns nil with no error when the queue is empty.
	Dequeue(ctx context.Context) (*model.Message, error)

	// Depth returns the number of messages resident in the main queue.
	Depth(ctx context.Context) (int, error)

	// EnqueueDLQ appends a message to the dead-letter queue. Duplicates are
	// never rejected here.
	EnqueueDLQ(ctx context.Context, msg *model.Message) error

	// DequeueDLQ removes and returns the oldest dead-lettered message, or
	// nil with no error when the DLQ is empty.
	DequeueDLQ(ctx context.Context) (*model.Message, error)

	// DLQDepth returns the number of messages resident in the DLQ.
	DLQDepth(ctx context.Context) (int, error)
}
