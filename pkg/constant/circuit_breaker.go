// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import "time"

// Circuit breaker configuration and state names.
const (
	// CircuitBreakerDefaultThreshold is the number of consecutive failures
	// that trips the breaker when no explicit threshold is configured.
	CircuitBreakerDefaultThreshold = 5

	// CircuitBreakerDefaultTimeout is the minimum interval an open breaker
	// observes before admitting a probe call.
	CircuitBreakerDefaultTimeout = 30 * time.Second

	CircuitBreakerStateClosed   = "closed"
	CircuitBreakerStateOpen     = "open"
	CircuitBreakerStateHalfOpen = "half-open"
)
