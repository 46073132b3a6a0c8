// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
)

// Status represents the lifecycle state of a message. It is serialised as its
// integer ordinal in JSON bodies, snapshot files and the processed store.
type Status int

const (
	// StatusCreated is the state of a freshly constructed message.
	StatusCreated Status = iota

	// StatusSent means the message was accepted by the main queue.
	StatusSent

	// StatusReceived means the message was delivered to a consumer.
	StatusReceived

	// StatusProcessing means the worker picked the message up.
	StatusProcessing

	// StatusCompleted means the processed record was committed to the sink.
	StatusCompleted

	// StatusFailed means the worker gave up on the message.
	StatusFailed
)

// String returns the human-readable name of the status.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusSent:
		return "Sent"
	case StatusReceived:
		return "Received"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// validate is the shared validator instance for message validation. The
// notblank rule rejects strings that are empty or whitespace only.
var validate = func() *validator.Validate {
	v := validator.New()

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	return v
}()

// Message is a business message flowing through the pipeline. The JSON field
// names are a wire contract shared by the snapshot file and the broker body,
// so they must not change.
type Message struct {
	// ID uniquely identifies the logical message across the whole pipeline.
	ID uuid.UUID `json:"MessageId"`

	// Timestamp is the UTC instant the message was created at its source.
	Timestamp time.Time `json:"Timestamp"`

	// SourceSystem names the upstream system that produced the message.
	SourceSystem string `json:"SourceSystem" validate:"notblank"`

	// Payload is the opaque business content.
	Payload string `json:"Payload" validate:"notblank"`

	// Status is the current lifecycle state.
	Status Status `json:"Status"`
}

// NewMessage builds a message from a source system and payload, allocating a
// fresh id and capturing the creation instant in UTC.
func NewMessage(sourceSystem, payload string) *Message {
	return &Message{
		ID:           uuid.New(),
		Timestamp:    time.Now().UTC(),
		SourceSystem: sourceSystem,
		Payload:      payload,
		Status:       StatusCreated,
	}
}

// IsValid reports whether the message can be processed: both SourceSystem and
// Payload must be non-empty and not whitespace only.
func (m *Message) IsValid() bool {
	return validate.Struct(m) == nil
}

// ProcessedMessage is a message together with the instant the worker committed
// it to the sink. Its payload is the transformed payload, not the original.
type ProcessedMessage struct {
	Message

	// ProcessedAt is the UTC instant the worker produced the record.
	ProcessedAt time.Time `json:"ProcessedAt"`
}
