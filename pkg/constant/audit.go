// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

// Audit row status values persisted in the AuditLogs table.
const (
	AuditStatusProcessing = "Processing"
	AuditStatusCompleted  = "Completed"
	AuditStatusFailed     = "Failed"
)

// Worker audit error messages for the non-retryable failure branches.
const (
	// AuditErrValidationFailed is recorded when a message fails validation
	// and is quarantined without touching the sink.
	AuditErrValidationFailed = "Validation failed"

	// AuditErrCircuitOpen is recorded when the breaker refused the commit.
	AuditErrCircuitOpen = "Circuit breaker open"
)
