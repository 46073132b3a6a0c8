// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package errlog appends human-readable failure records to a text file. The
// record layout is a persisted contract consumed by support tooling.
package errlog

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LerianStudio/dispatcher/pkg/constant"

	"github.com/pkg/errors"
)

// stackTracer is the interface carried by errors created or wrapped with
// github.com/pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Logger is an append-only error sink. Writers serialise under one mutex so
// records never interleave.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New creates a logger appending to the file at path, creating the containing
// directory if absent.
func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "errlog: creating log directory")
	}

	return &Logger{
		path: path,
		now:  time.Now,
	}, nil
}

// Write appends a record for a failed attempt on a message. A nil err writes
// placeholder fields rather than failing.
func (l *Logger) Write(messageID string, attempt int, err error) error {
	errType := constant.ErrLogUnknownType
	errMessage := constant.ErrLogNoDetails
	stack := constant.ErrLogNoStackTrace

	if err != nil {
		errType = fmt.Sprintf("%T", err)
		errMessage = err.Error()

		if trace := stackTraceOf(err); trace != "" {
			stack = trace
		}
	}

	return l.append(messageID, attempt, errType, errMessage, stack)
}

// WriteRetryScheduled appends a record announcing that retry number attempt
// will run after delay. It is written before the retry policy sleeps.
func (l *Logger) WriteRetryScheduled(messageID string, attempt int, delay time.Duration) error {
	message := fmt.Sprintf("Retry %d scheduled in %s", attempt, delay)

	return l.append(messageID, attempt, "RetryScheduled", message, constant.ErrLogNoStackTrace)
}

func (l *Logger) append(messageID string, attempt int, errType, errMessage, stack string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder

	fmt.Fprintf(&b, "[%s]\n", l.now().UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "Message ID: %s\n", messageID)
	fmt.Fprintf(&b, "Attempt: %d\n", attempt)
	fmt.Fprintf(&b, "Exception Type: %s\n", errType)
	fmt.Fprintf(&b, "Error Message: %s\n", errMessage)
	fmt.Fprintf(&b, "Stack Trace: %s\n", stack)
	b.WriteString(strings.Repeat("-", constant.ErrLogSeparatorLength))
	b.WriteString("\n")

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "errlog: opening log file")
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return errors.Wrap(err, "errlog: appending record")
	}

	return nil
}

// stackTraceOf returns the formatted stack of the innermost error in the
// chain that carries one, or the empty string.
func stackTraceOf(err error) string {
	var trace string

	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			trace = strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
		}
	}

	return trace
}
