// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package processed

import (
	"context"
	"database/sql"
	"time"

	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/model"
	"github.com/LerianStudio/dispatcher/pkg/sqlite"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Repository provides an interface for the durable store of processed
// messages, keyed by message id.
type Repository interface {
	// Save persists a single record. Saving a second record with the same
	// id fails with a pkg.DuplicateKeyError.
	Save(ctx context.Context, record *model.ProcessedMessage) error

	// GetByID returns the record for id, or nil when none exists.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ProcessedMessage, error)

	// GetAll returns every saved record in insertion order.
	GetAll(ctx context.Context) ([]*model.ProcessedMessage, error)
}

// ProcessedMessageSQLiteRepository is a SQLite-specific implementation of the
// processed message Repository.
type ProcessedMessageSQLiteRepository struct {
	connection *sqlite.Connection
}

// Compile-time interface satisfaction check.
var _ Repository = (*ProcessedMessageSQLiteRepository)(nil)

// NewProcessedMessageSQLiteRepository returns a repository backed by the given
// SQLite connection.
func NewProcessedMessageSQLiteRepository(c *sqlite.Connection) (*ProcessedMessageSQLiteRepository, error) {
	r := &ProcessedMessageSQLiteRepository{
		connection: c,
	}

	if _, err := c.GetDB(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to sqlite for processed messages")
	}

	return r, nil
}

// Save inserts record into the ProcessedMessages table.
func (r *ProcessedMessageSQLiteRepository) Save(ctx context.Context, record *model.ProcessedMessage) error {
	db, err := r.connection.GetDB()
	if err != nil {
		return err
	}

	query, args, err := squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Question).
		Insert("ProcessedMessages").
		Columns("MessageId", "Timestamp", "SourceSystem", "Payload", "Status", "ProcessedAt").
		Values(
			record.ID.String(),
			record.Timestamp.UTC().Format(time.RFC3339Nano),
			record.SourceSystem,
			record.Payload,
			int(record.Status),
			record.ProcessedAt.UTC().Format(time.RFC3339Nano),
		).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building processed message insert")
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return pkg.DuplicateKeyError{MessageID: record.ID.String(), Err: err}
		}

		return errors.Wrap(err, "saving processed message")
	}

	return nil
}

// GetByID returns the record for id, or nil when it was never saved.
func (r *ProcessedMessageSQLiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ProcessedMessage, error) {
	db, err := r.connection.GetDB()
	if err != nil {
		return nil, err
	}

	query, args, err := selectRecords().
		Where(squirrel.Eq{"MessageId": id.String()}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building processed message select")
	}

	record, err := scanRecord(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return record, err
}

// GetAll returns every saved record in insertion order.
func (r *ProcessedMessageSQLiteRepository) GetAll(ctx context.Context) ([]*model.ProcessedMessage, error) {
	db, err := r.connection.GetDB()
	if err != nil {
		return nil, err
	}

	query, args, err := selectRecords().
		OrderBy("rowid").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building processed message list select")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing processed messages")
	}
	defer rows.Close()

	var records []*model.ProcessedMessage

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func selectRecords() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Question).
		Select("MessageId", "Timestamp", "SourceSystem", "Payload", "Status", "ProcessedAt").
		From("ProcessedMessages")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.ProcessedMessage, error) {
	var (
		id          string
		timestamp   string
		source      string
		payload     string
		status      int
		processedAt string
	)

	if err := row.Scan(&id, &timestamp, &source, &payload, &status, &processedAt); err != nil {
		return nil, err
	}

	messageID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrap(err, "parsing processed message id")
	}

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "parsing processed message timestamp")
	}

	pa, err := time.Parse(time.RFC3339Nano, processedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing processed message processedAt")
	}

	return &model.ProcessedMessage{
		Message: model.Message{
			ID:           messageID,
			Timestamp:    ts,
			SourceSystem: source,
			Payload:      payload,
			Status:       model.Status(status),
		},
		ProcessedAt: pa,
	}, nil
}
