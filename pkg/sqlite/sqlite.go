// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package sqlite manages the embedded SQLite database holding the processed
// message store and the audit trail.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	// SQLite driver registration.
	_ "github.com/mattn/go-sqlite3"
)

// schema bootstraps both tables. The column layout is a persisted contract.
const schema = `
CREATE TABLE IF NOT EXISTS ProcessedMessages (
    MessageId    TEXT PRIMARY KEY,
    Timestamp    TEXT,
    SourceSystem TEXT,
    Payload      TEXT,
    Status       INTEGER,
    ProcessedAt  TEXT
);

CREATE TABLE IF NOT EXISTS AuditLogs (
    Id           INTEGER PRIMARY KEY AUTOINCREMENT,
    MessageId    TEXT UNIQUE,
    StartTime    TEXT,
    EndTime      TEXT NULL,
    DurationMs   REAL NULL,
    Status       TEXT,
    ErrorMessage TEXT NULL
);
`

// Connection wraps a lazily opened SQLite database handle. The schema is
// bootstrapped on first use.
type Connection struct {
	File   string
	Logger *zap.SugaredLogger

	mu sync.Mutex
	db *sql.DB
}

// NewConnection creates a connection for the database file at path.
func NewConnection(file string, logger *zap.SugaredLogger) *Connection {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Connection{
		File:   file,
		Logger: logger,
	}
}

// GetDB opens the database on first call, creating the containing directory
// and the schema, and returns the shared handle afterwards.
func (c *Connection) GetDB() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	if dir := filepath.Dir(c.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "sqlite: creating database directory")
		}
	}

	db, err := sql.Open("sqlite3", c.File+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: opening database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite: pinging database")
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite: bootstrapping schema")
	}

	c.Logger.Infof("Connected to SQLite database at %s", c.File)
	c.db = db

	return c.db, nil
}

// Close releases the database handle.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil

	return err
}
