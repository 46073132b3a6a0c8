// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package queue

import (
	"context"
	"sync"

	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/model"

	"github.com/google/uuid"
)

// LocalQueue is a process-local, unbounded MessageQueue. Deduplication is
// enforced per id while a message is resident in the main queue; the id is
// pruned on dequeue so the same logical message may be re-published later.
type LocalQueue struct {
	mu   sync.Mutex
	main []*model.Message
	dlq  []*model.Message
	ids  map[uuid.UUID]struct{}
}

// Compile-time interface satisfaction check.
var _ MessageQueue = (*LocalQueue)(nil)

// NewLocalQueue creates an empty local queue.
func NewLocalQueue() *LocalQueue {
	return &LocalQueue{
		ids: make(map[uuid.UUID]struct{}),
	}
}

// Enqueue appends msg to the main queue and marks it sent. A message whose id
// is already resident is rejected and the queue is left unchanged.
func (q *LocalQueue) Enqueue(_ context.Context, msg *model.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.ids[msg.ID]; exists {
		return pkg.DuplicateMessageError{MessageID: msg.ID.String()}
	}

	msg.Status = model.StatusSent
	q.ids[msg.ID] = struct{}{}
	q.main = append(q.main, msg)

	return nil
}

// Dequeue removes the oldest message from the main queue and prunes its id
// from the dedup set.
func (q *LocalQueue) Dequeue(_ context.Context) (*model.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.main) == 0 {
		return nil, nil
	}

	msg := q.main[0]
	q.main = q.main[1:]
	delete(q.ids, msg.ID)

	return msg, nil
}

// Depth returns the number of messages in the main queue.
func (q *LocalQueue) Depth(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.main), nil
}

// EnqueueDLQ appends msg to the dead-letter queue. No dedup applies.
func (q *LocalQueue) EnqueueDLQ(_ context.Context, msg *model.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dlq = append(q.dlq, msg)

	return nil
}

// DequeueDLQ removes the oldest dead-lettered message.
func (q *LocalQueue) DequeueDLQ(_ context.Context) (*model.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.dlq) == 0 {
		return nil, nil
	}

	msg := q.dlq[0]
	q.dlq = q.dlq[1:]

	return msg, nil
}

// DLQDepth returns the number of messages in the dead-letter queue.
func (q *LocalQueue) DLQDepth(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.dlq), nil
}
