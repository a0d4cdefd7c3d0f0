package sqldb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fpl-collector/internal/domain/syncrun"
)

const syncRunsDDL = `CREATE TABLE sync_runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	tables_updated TEXT NOT NULL DEFAULT '[]',
	detail TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
)`

func openTestRunRepo(t *testing.T) *SyncRunRepository {
	t.Helper()

	db, _, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(context.Background(), syncRunsDDL)
	require.NoError(t, err)

	return NewSyncRunRepository(db)
}

func TestSyncRunRecordAndList(t *testing.T) {
	t.Parallel()

	repo := openTestRunRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	older := syncrun.Run{
		ID:            "run-1",
		Status:        syncrun.StatusCompleted,
		TablesUpdated: []string{"chips", "game_weeks"},
		Detail:        "updated 2 tables",
		StartedAt:     base,
		FinishedAt:    base.Add(3 * time.Second),
	}
	newer := syncrun.Run{
		ID:         "run-2",
		Status:     syncrun.StatusNoop,
		Detail:     "all specified tables are up to date",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Second),
	}

	require.NoError(t, repo.Record(ctx, older))
	require.NoError(t, repo.Record(ctx, newer))

	runs, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, "run-2", runs[0].ID)
	require.Equal(t, "run-1", runs[1].ID)
	require.Equal(t, []string{"chips", "game_weeks"}, runs[1].TablesUpdated)
	require.Empty(t, runs[0].TablesUpdated)
	require.Equal(t, syncrun.StatusNoop, runs[0].Status)
	require.Equal(t, "updated 2 tables", runs[1].Detail)
}

func TestSyncRunListRespectsLimit(t *testing.T) {
	t.Parallel()

	repo := openTestRunRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		run := syncrun.Run{
			ID:         id,
			Status:     syncrun.StatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}
		require.NoError(t, repo.Record(ctx, run))
	}

	runs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "d", runs[0].ID)
	require.Equal(t, "c", runs[1].ID)
}

func TestSyncRunRecordRejectsInvalidRun(t *testing.T) {
	t.Parallel()

	repo := openTestRunRepo(t)

	bad := syncrun.Run{ID: "run-x", Status: "unknown", StartedAt: time.Now()}
	require.Error(t, repo.Record(context.Background(), bad))
}
