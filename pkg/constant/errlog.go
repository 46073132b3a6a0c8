// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

// Error log persisted-format configuration. Records are human readable and
// parsed by support tooling, so the field labels and separator are fixed.
const (
	// ErrLogSeparatorLength is the number of dashes in the line separating
	// two error log records.
	ErrLogSeparatorLength = 80

	// ErrLogUnknownType is written when the failure carries no error value.
	ErrLogUnknownType = "Unknown"

	// ErrLogNoDetails is written when there is no error message to record.
	ErrLogNoDetails = "No exception details"

	// ErrLogNoStackTrace is written when the error carries no stack trace.
	ErrLogNoStackTrace = "No stack trace available"
)
