// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCircuitOpen is returned by the circuit breaker when a call is refused
// without invoking the protected action.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// DuplicateMessageError records an enqueue that was rejected because a message
// with the same id is already resident in the main queue. The queue is left
// unchanged when this error is returned.
type DuplicateMessageError struct {
	MessageID string
}

// Error implements the error interface.
func (e DuplicateMessageError) Error() string {
	if strings.TrimSpace(e.MessageID) == "" {
		return "duplicate message"
	}

	return fmt.Sprintf("message %s is already enqueued", e.MessageID)
}

// DuplicateKeyError records an insert into a keyed store that collided with an
// existing row for the same key.
type DuplicateKeyError struct {
	MessageID string
	Err       error
}

// Error implements the error interface.
func (e DuplicateKeyError) Error() string {
	if strings.TrimSpace(e.MessageID) == "" {
		return "duplicate key"
	}

	return fmt.Sprintf("record with id %s already exists", e.MessageID)
}

// Unwrap implements the error interface introduced in Go 1.13 to unwrap the internal error.
func (e DuplicateKeyError) Unwrap() error {
	return e.Err
}

// IsDuplicateMessage reports whether err is a DuplicateMessageError.
func IsDuplicateMessage(err error) bool {
	var e DuplicateMessageError
	return errors.As(err, &e)
}

// IsDuplicateKey reports whether err is a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var e DuplicateKeyError
	return errors.As(err, &e)
}
