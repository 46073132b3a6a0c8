// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import "time"

// Retry policy configuration.
const (
	// DefaultMaxRetries is the number of additional attempts after the
	// initial call when no explicit budget is configured.
	DefaultMaxRetries = 3

	// RetryInitialBackoff is the delay before the first retry. Successive
	// delays double, so retry n waits 2^(n-1) times this value.
	RetryInitialBackoff = 1 * time.Second

	// RetryBackoffFactor is the multiplier applied to the delay on each
	// successive retry.
	RetryBackoffFactor = 2.0

	// RetryMaxBackoff is the upper bound for a single retry delay. It only
	// exists to keep the doubling bounded for very large retry budgets.
	RetryMaxBackoff = 1 << 20 * time.Second
)
