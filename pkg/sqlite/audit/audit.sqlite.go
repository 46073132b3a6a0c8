// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package audit persists one row per processed message recording when each
// processing attempt started, when it ended and how it went.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/constant"
	"github.com/LerianStudio/dispatcher/pkg/sqlite"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// timeLayout stores instants with a fixed nine-digit fraction so that the
// text order of StartTime matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AuditLog is one row of the audit trail.
type AuditLog struct {
	ID           int64
	MessageID    uuid.UUID
	StartTime    time.Time
	EndTime      *time.Time
	DurationMs   *float64
	Status       string
	ErrorMessage *string
}

// Statistics aggregates the audit rows that carry a duration.
type Statistics struct {
	Total         int
	Success       int
	Failure       int
	AvgDurationMs float64
	MinDurationMs float64
	MaxDurationMs float64
	SuccessRate   float64
}

// Repository provides an interface for the audit trail store.
type Repository interface {
	// LogStart inserts a Processing row for id. A second LogStart for the
	// same id surfaces the store's uniqueness error.
	LogStart(ctx context.Context, id uuid.UUID) error

	// LogEnd completes the row for id with the outcome and duration. It
	// silently returns when no row exists for id.
	LogEnd(ctx context.Context, id uuid.UUID, success bool, errorMessage string) error

	// GetByID returns the row for id, or nil when none exists.
	GetByID(ctx context.Context, id uuid.UUID) (*AuditLog, error)

	// GetAll returns every row, newest first by start time.
	GetAll(ctx context.Context) ([]*AuditLog, error)

	// Statistics aggregates the rows with a non-null duration.
	Statistics(ctx context.Context) (*Statistics, error)
}

// AuditLogSQLiteRepository is a SQLite-specific implementation of the audit
// Repository.
type AuditLogSQLiteRepository struct {
	connection *sqlite.Connection
	now        func() time.Time
}

// Compile-time interface satisfaction check.
var _ Repository = (*AuditLogSQLiteRepository)(nil)

// NewAuditLogSQLiteRepository returns a repository backed by the given SQLite
// connection.
func NewAuditLogSQLiteRepository(c *sqlite.Connection) (*AuditLogSQLiteRepository, error) {
	r := &AuditLogSQLiteRepository{
		connection: c,
		now:        time.Now,
	}

	if _, err := c.GetDB(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to sqlite for audit logs")
	}

	return r, nil
}

// LogStart inserts a Processing row for id with the current instant.
func (r *AuditLogSQLiteRepository) LogStart(ctx context.Context, id uuid.UUID) error {
	db, err := r.connection.GetDB()
	if err != nil {
		return err
	}

	query, args, err := squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Question).
		Insert("AuditLogs").
		Columns("MessageId", "StartTime", "Status").
		Values(id.String(), r.now().UTC().Format(timeLayout), constant.AuditStatusProcessing).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building audit start insert")
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return pkg.DuplicateKeyError{MessageID: id.String(), Err: err}
		}

		return errors.Wrap(err, "inserting audit start row")
	}

	return nil
}

// LogEnd completes the row for id: it reads the recorded start time, computes
// the elapsed duration and updates end time, duration, status and error
// message. Calling LogEnd for an id without a row is a no-op.
func (r *AuditLogSQLiteRepository) LogEnd(ctx context.Context, id uuid.UUID, success bool, errorMessage string) error {
	db, err := r.connection.GetDB()
	if err != nil {
		return err
	}

	query, args, err := squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Question).
		Select("StartTime").
		From("AuditLogs").
		Where(squirrel.Eq{"MessageId": id.String()}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building audit start select")
	}

	var startRaw string

	err = db.QueryRowContext(ctx, query, args...).Scan(&startRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "reading audit start row")
	}

	startTime, err := time.Parse(time.RFC3339Nano, startRaw)
	if err != nil {
		return errors.Wrap(err, "parsing audit start time")
	}

	endTime := r.now().UTC()
	durationMs := float64(endTime.Sub(startTime)) / float64(time.Millisecond)

	status := constant.AuditStatusCompleted
	if !success {
		status = constant.AuditStatusFailed
	}

	var errMsg any
	if errorMessage != "" {
		errMsg = errorMessage
	}

	query, args, err = squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Question).
		Update("AuditLogs").
		Set("EndTime", endTime.Format(timeLayout)).
		Set("DurationMs", durationMs).
		Set("Status", status).
		Set("ErrorMessage", errMsg).
		Where(squirrel.Eq{"MessageId": id.String()}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building audit end update")
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "updating audit end row")
	}

	return nil
}

// GetByID returns the row for id, or nil when none exists.
func (r *AuditLogSQLiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*AuditLog, error) {
	db, err := r.connection.GetDB()
	if err != nil {
		return nil, err
	}

	query, args, err := selectRows().
		Where(squirrel.Eq{"MessageId": id.String()}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building audit select")
	}

	row, err := scanRow(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return row, err
}

// GetAll returns every audit row, newest first by start time.
func (r *AuditLogSQLiteRepository) GetAll(ctx context.Context) ([]*AuditLog, error) {
	db, err := r.connection.GetDB()
	if err != nil {
		return nil, err
	}

	query, args, err := selectRows().
		OrderBy("StartTime DESC", "Id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building audit list select")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing audit rows")
	}
	defer rows.Close()

	var logs []*AuditLog

	for rows.Next() {
		log, err := scanRow(rows)
		if err != nil {
			return nil, err
		}

		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// Statistics aggregates the audit rows with a non-null duration.
func (r *AuditLogSQLiteRepository) Statistics(ctx context.Context) (*Statistics, error) {
	db, err := r.connection.GetDB()
	if err != nil {
		return nil, err
	}

	query, args, err := squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Question).
		Select(
			"COUNT(*)",
			"COALESCE(SUM(CASE WHEN Status = ? THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN Status = ? THEN 1 ELSE 0 END), 0)",
			"COALESCE(AVG(DurationMs), 0)",
			"COALESCE(MIN(DurationMs), 0)",
			"COALESCE(MAX(DurationMs), 0)",
		).
		From("AuditLogs").
		Where("DurationMs IS NOT NULL").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building audit statistics select")
	}

	args = append([]any{constant.AuditStatusCompleted, constant.AuditStatusFailed}, args...)

	stats := &Statistics{}

	err = db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Success,
		&stats.Failure,
		&stats.AvgDurationMs,
		&stats.MinDurationMs,
		&stats.MaxDurationMs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating audit statistics")
	}

	if stats.Total > 0 {
		stats.SuccessRate = 100 * float64(stats.Success) / float64(stats.Total)
	}

	return stats, nil
}

func selectRows() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Question).
		Select("Id", "MessageId", "StartTime", "EndTime", "DurationMs", "Status", "ErrorMessage").
		From("AuditLogs")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*AuditLog, error) {
	var (
		id        int64
		messageID string
		startRaw  string
		endRaw    sql.NullString
		duration  sql.NullFloat64
		status    string
		errMsg    sql.NullString
	)

	if err := row.Scan(&id, &messageID, &startRaw, &endRaw, &duration, &status, &errMsg); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(messageID)
	if err != nil {
		return nil, errors.Wrap(err, "parsing audit message id")
	}

	startTime, err := time.Parse(time.RFC3339Nano, startRaw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing audit start time")
	}

	log := &AuditLog{
		ID:        id,
		MessageID: parsedID,
		StartTime: startTime,
		Status:    status,
	}

	if endRaw.Valid {
		endTime, err := time.Parse(time.RFC3339Nano, endRaw.String)
		if err != nil {
			return nil, errors.Wrap(err, "parsing audit end time")
		}

		log.EndTime = &endTime
	}

	if duration.Valid {
		log.DurationMs = &duration.Float64
	}

	if errMsg.Valid {
		log.ErrorMessage = &errMsg.String
	}

	return log, nil
}
