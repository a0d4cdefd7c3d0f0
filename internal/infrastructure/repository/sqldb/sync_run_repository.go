package sqldb

import (
	"context"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-collector/internal/domain/syncrun"
	qb "github.com/riskibarqy/fpl-collector/internal/platform/querybuilder"
)

// SyncRunRepository stores sync bookkeeping rows in the migrated sync_runs
// table.
type SyncRunRepository struct {
	db *sqlx.DB
}

func NewSyncRunRepository(db *sqlx.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

type syncRunRow struct {
	ID            string    `db:"id"`
	Status        string    `db:"status"`
	TablesUpdated string    `db:"tables_updated"`
	Detail        string    `db:"detail"`
	StartedAt     time.Time `db:"started_at"`
	FinishedAt    time.Time `db:"finished_at"`
}

func (r *SyncRunRepository) Record(ctx context.Context, run syncrun.Run) error {
	if err := run.Validate(); err != nil {
		return crerr.Wrap(err, "validate sync run")
	}

	tablesJSON, err := sonic.Marshal(run.TablesUpdated)
	if err != nil {
		return crerr.Wrap(err, "encode updated tables")
	}

	query, args, err := qb.InsertInto("sync_runs").
		Columns("id", "status", "tables_updated", "detail", "started_at", "finished_at").
		Values(run.ID, run.Status, string(tablesJSON), run.Detail, run.StartedAt.UTC(), run.FinishedAt.UTC()).
		ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build insert sync run query")
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return crerr.Wrapf(err, "insert sync run id=%s", run.ID)
	}

	return nil
}

func (r *SyncRunRepository) ListRecent(ctx context.Context, limit int) ([]syncrun.Run, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := qb.Select("id", "status", "tables_updated", "detail", "started_at", "finished_at").
		From("sync_runs").
		OrderBy("started_at DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build list sync runs query")
	}

	var rows []syncRunRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, crerr.Wrap(err, "list sync runs")
	}

	out := make([]syncrun.Run, 0, len(rows))
	for _, row := range rows {
		var tables []string
		if row.TablesUpdated != "" {
			if err := sonic.Unmarshal([]byte(row.TablesUpdated), &tables); err != nil {
				return nil, crerr.Wrapf(err, "decode updated tables for run id=%s", row.ID)
			}
		}
		out = append(out, syncrun.Run{
			ID:            row.ID,
			Status:        row.Status,
			TablesUpdated: tables,
			Detail:        row.Detail,
			StartedAt:     row.StartedAt,
			FinishedAt:    row.FinishedAt,
		})
	}

	return out, nil
}
