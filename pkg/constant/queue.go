// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

// Queue naming configuration.
const (
	// DLQSuffix is appended to a queue name to derive its dead-letter sibling.
	DLQSuffix = "-dlq"

	// DefaultQueueName is the main queue used when no name is configured.
	DefaultQueueName = "dispatcher-messages"
)
