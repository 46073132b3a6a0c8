// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/LerianStudio/dispatcher/pkg"
	"github.com/LerianStudio/dispatcher/pkg/constant"
	"github.com/LerianStudio/dispatcher/pkg/sqlite"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *AuditLogSQLiteRepository {
	t.Helper()

	conn := sqlite.NewConnection(filepath.Join(t.TempDir(), "dispatcher.db"), nil)
	t.Cleanup(func() { _ = conn.Close() })

	repo, err := NewAuditLogSQLiteRepository(conn)
	require.NoError(t, err)

	return repo
}

// steppedClock advances a fixed amount on every read, so durations computed
// between two reads are deterministic and positive.
func steppedClock(start time.Time, step time.Duration) func() time.Time {
	current := start

	return func() time.Time {
		now := current
		current = current.Add(step)

		return now
	}
}

func TestAuditRepository_LogStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	id := uuid.New()

	require.NoError(t, repo.LogStart(ctx, id))

	row, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.Equal(t, id, row.MessageID)
	assert.Equal(t, constant.AuditStatusProcessing, row.Status)
	assert.Nil(t, row.EndTime)
	assert.Nil(t, row.DurationMs)
	assert.Nil(t, row.ErrorMessage)
}

func TestAuditRepository_LogStartDuplicateRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	id := uuid.New()

	require.NoError(t, repo.LogStart(ctx, id))

	err := repo.LogStart(ctx, id)
	require.Error(t, err)
	assert.True(t, pkg.IsDuplicateKey(err))
}

func TestAuditRepository_LogEndSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	repo.now = steppedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 250*time.Millisecond)

	id := uuid.New()

	require.NoError(t, repo.LogStart(ctx, id))
	require.NoError(t, repo.LogEnd(ctx, id, true, ""))

	row, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.Equal(t, constant.AuditStatusCompleted, row.Status)
	require.NotNil(t, row.EndTime)
	require.NotNil(t, row.DurationMs)
	assert.Equal(t, 250.0, *row.DurationMs)
	assert.Nil(t, row.ErrorMessage)
	assert.Equal(t, row.EndTime.Sub(row.StartTime), 250*time.Millisecond)
}

func TestAuditRepository_LogEndFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	id := uuid.New()

	require.NoError(t, repo.LogStart(ctx, id))
	require.NoError(t, repo.LogEnd(ctx, id, false, "Validation failed"))

	row, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.Equal(t, constant.AuditStatusFailed, row.Status)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "Validation failed", *row.ErrorMessage)
}

func TestAuditRepository_LogEndWithoutStartIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.LogEnd(ctx, uuid.New(), true, ""))

	rows, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAuditRepository_StatusFollowsLastCall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	id := uuid.New()

	require.NoError(t, repo.LogStart(ctx, id))

	row, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constant.AuditStatusProcessing, row.Status)

	require.NoError(t, repo.LogEnd(ctx, id, false, "boom"))

	row, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constant.AuditStatusFailed, row.Status)

	require.NoError(t, repo.LogEnd(ctx, id, true, ""))

	row, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constant.AuditStatusCompleted, row.Status)
}

func TestAuditRepository_GetAllNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	repo.now = steppedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Second)

	first := uuid.New()
	second := uuid.New()
	third := uuid.New()

	require.NoError(t, repo.LogStart(ctx, first))
	require.NoError(t, repo.LogStart(ctx, second))
	require.NoError(t, repo.LogStart(ctx, third))

	rows, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, third, rows[0].MessageID)
	assert.Equal(t, second, rows[1].MessageID)
	assert.Equal(t, first, rows[2].MessageID)
}

func TestAuditRepository_Statistics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	repo.now = steppedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 100*time.Millisecond)

	completedOne := uuid.New()
	completedTwo := uuid.New()
	failed := uuid.New()
	processing := uuid.New()

	require.NoError(t, repo.LogStart(ctx, completedOne))
	require.NoError(t, repo.LogEnd(ctx, completedOne, true, ""))

	require.NoError(t, repo.LogStart(ctx, completedTwo))
	require.NoError(t, repo.LogEnd(ctx, completedTwo, true, ""))

	require.NoError(t, repo.LogStart(ctx, failed))
	require.NoError(t, repo.LogEnd(ctx, failed, false, "boom"))

	// A row still in Processing has no duration and is excluded.
	require.NoError(t, repo.LogStart(ctx, processing))

	stats, err := repo.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Failure)
	assert.Equal(t, 100.0, stats.AvgDurationMs)
	assert.Equal(t, 100.0, stats.MinDurationMs)
	assert.Equal(t, 100.0, stats.MaxDurationMs)
	assert.InDelta(t, 66.66, stats.SuccessRate, 0.01)
}

func TestAuditRepository_StatisticsEmpty(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	stats, err := repo.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.Equal(t, 0.0, stats.AvgDurationMs)
}
