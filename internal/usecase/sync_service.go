package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/fpl-collector/internal/domain/syncrun"
	"github.com/riskibarqy/fpl-collector/internal/domain/table"
)

const (
	syncStatusSuccess = "success"
	syncStatusFailed  = "failed"
	syncStatusSkipped = "skipped"
)

type SyncResult struct {
	RunID         string           `json:"run_id"`
	Status        string           `json:"status"`
	TablesUpdated []string         `json:"tables_updated"`
	Tasks         []SyncTaskResult `json:"tasks"`
	DurationMs    int64            `json:"duration_ms"`
}

type SyncTaskResult struct {
	Table      string `json:"table"`
	Status     string `json:"status"`
	Rows       int    `json:"rows"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

// SyncDatabase refreshes stale tables in the persisted store. When tables is
// non-empty only those tables are considered; names absent from the verdict
// map are ignored. Replacement happens per table, a failure on one table does
// not roll back the others.
func (s *CollectorService) SyncDatabase(ctx context.Context, tables []string) (SyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.SyncDatabase")
	defer span.End()

	started := time.Now()
	runID, err := s.idGen.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate sync run id failed", "error", err)
	}
	result := SyncResult{RunID: runID, Status: syncrun.StatusNoop}

	check := s.DetectChanges(ctx)
	switch check.Status {
	case UpdateStatusStoreError:
		s.recordRun(ctx, result, started, "update check hit a store error")
		return result, crerr.Wrap(check.Err, "check for updates")
	case UpdateStatusFetchFailed:
		s.logger.WarnContext(ctx, "no updates available, fetch failed", "error", check.Err)
		s.recordRun(ctx, result, started, "update check fetch failed")
		result.DurationMs = time.Since(started).Milliseconds()
		return result, nil
	}

	candidates := make([]string, 0, len(check.Updates))
	if len(tables) > 0 {
		candidates = append(candidates, tables...)
	} else {
		for name := range check.Updates {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	stale := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if check.Updates[name] {
			stale = append(stale, name)
		}
	}

	if len(stale) == 0 {
		s.logger.InfoContext(ctx, "all specified tables are up to date")
		s.recordRun(ctx, result, started, "all tables up to date")
		result.DurationMs = time.Since(started).Milliseconds()
		return result, nil
	}

	s.logger.InfoContext(ctx, "updating tables", "tables", stale)

	// Second full fetch so the written rows are as fresh as possible.
	data, err := s.fetcher.GetFplData(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch new data", "error", err)
		s.recordRun(ctx, result, started, "refetch failed")
		result.DurationMs = time.Since(started).Milliseconds()
		return result, nil
	}

	var firstErr error
	for _, name := range stale {
		task := SyncTaskResult{Table: name}
		taskStart := time.Now()

		rows, ok := data[name]
		if !ok {
			task.Status = syncStatusSkipped
			task.Message = "table missing from refetched data"
		} else if err := s.store.ReplaceTable(ctx, name, rows); err != nil {
			task.Status = syncStatusFailed
			task.Message = err.Error()
			if firstErr == nil {
				firstErr = crerr.Wrapf(err, "replace table %s", name)
			}
		} else {
			task.Status = syncStatusSuccess
			task.Rows = len(rows)
			result.TablesUpdated = append(result.TablesUpdated, name)
		}

		task.DurationMs = time.Since(taskStart).Milliseconds()
		result.Tasks = append(result.Tasks, task)
	}

	if firstErr != nil {
		result.Status = syncrun.StatusFailed
	} else {
		result.Status = syncrun.StatusCompleted
	}
	result.DurationMs = time.Since(started).Milliseconds()
	s.recordRun(ctx, result, started, "")

	if firstErr != nil {
		return result, firstErr
	}
	s.logger.InfoContext(ctx, "database sync completed", "tables_updated", result.TablesUpdated)
	return result, nil
}

// GetLastUpdatedGameweek returns the highest finished gameweek id in the
// persisted store, 0 on any failure or when no gameweek has finished.
func (s *CollectorService) GetLastUpdatedGameweek(ctx context.Context) int {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.GetLastUpdatedGameweek")
	defer span.End()

	if s.store == nil {
		return 0
	}

	rows, err := s.store.ReadTable(ctx, table.NameGameWeeks)
	if err != nil {
		s.logger.WarnContext(ctx, "read game weeks for last updated gameweek failed", "error", err)
		return 0
	}

	last := 0
	for _, row := range rows {
		if !row.Bool("finished") {
			continue
		}
		if id := row.Int("id"); id > last {
			last = id
		}
	}
	return last
}

func (s *CollectorService) recordRun(ctx context.Context, result SyncResult, started time.Time, detail string) {
	if s.runs == nil || result.RunID == "" {
		return
	}

	run := syncrun.Run{
		ID:            result.RunID,
		Status:        result.Status,
		TablesUpdated: result.TablesUpdated,
		Detail:        detail,
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
	if err := run.Validate(); err != nil {
		s.logger.WarnContext(ctx, "sync run record is invalid", "error", err)
		return
	}
	if err := s.runs.Record(ctx, run); err != nil {
		// Bookkeeping only; the sync outcome stands regardless.
		s.logger.WarnContext(ctx, "record sync run failed", "run_id", result.RunID, "error", err)
	}
}

// RecentRuns lists the latest sync runs, newest first.
func (s *CollectorService) RecentRuns(ctx context.Context, limit int) ([]syncrun.Run, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.RecentRuns")
	defer span.End()

	if s.runs == nil {
		return nil, fmt.Errorf("%w: sync run repository is not configured", ErrDependencyUnavailable)
	}
	if limit <= 0 {
		limit = 10
	}
	return s.runs.ListRecent(ctx, limit)
}
