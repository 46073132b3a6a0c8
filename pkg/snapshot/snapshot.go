// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package snapshot persists the set of not-yet-processed messages to a JSON
// file so a crashed run can be recovered.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/LerianStudio/dispatcher/pkg/model"

	"github.com/pkg/errors"
)

// Store saves and loads message lists as an indented JSON array. The field
// names in the file are the snapshot wire contract.
type Store struct {
	path string
}

// New creates a store writing to the file at path, creating the containing
// directory if absent.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "snapshot: creating directory")
	}

	return &Store{path: path}, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Save serialises messages to the snapshot file, replacing any previous
// content. Order is preserved.
func (s *Store) Save(messages []*model.Message) error {
	if messages == nil {
		messages = []*model.Message{}
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return errors.Wrap(err, "snapshot: marshalling messages")
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrap(err, "snapshot: writing file")
	}

	return nil
}

// Load returns the previously saved messages. A missing file or one holding
// invalid JSON yields an empty list, not an error.
func (s *Store) Load() ([]*model.Message, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []*model.Message{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "snapshot: reading file")
	}

	var messages []*model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return []*model.Message{}, nil
	}

	if messages == nil {
		messages = []*model.Message{}
	}

	return messages, nil
}
