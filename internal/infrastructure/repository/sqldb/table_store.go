package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-collector/internal/domain/table"
	qb "github.com/riskibarqy/fpl-collector/internal/platform/querybuilder"
)

// Parameter budget per INSERT statement; sqlite's default limit is 999.
const maxInsertParams = 900

// TableStore persists schema-less tables. Every column is TEXT holding the
// canonical value form, so rows read back compare equal to fresh rows.
type TableStore struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewTableStore(db *sqlx.DB, dialect Dialect) *TableStore {
	return &TableStore{db: db, dialect: dialect}
}

func (r *TableStore) TableExists(ctx context.Context, name string) (bool, error) {
	if !validIdentifier(name) {
		return false, crerr.Newf("invalid table name %q", name)
	}

	builder := qb.Select("1").From("sqlite_master").
		Where(qb.Eq("type", "table"), qb.Eq("name", name)).
		Limit(1)
	if r.dialect == DialectPostgres {
		builder = qb.Select("1").From("information_schema.tables").
			Where(qb.Eq("table_schema", "public"), qb.Eq("table_name", name)).
			Limit(1)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build table exists query")
	}

	var one int
	err = r.db.GetContext(ctx, &one, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, crerr.Wrapf(err, "check table %s exists", name)
	}

	return true, nil
}

func (r *TableStore) ReadTable(ctx context.Context, name string) (table.Table, error) {
	if !validIdentifier(name) {
		return nil, crerr.Newf("invalid table name %q", name)
	}

	query, args, err := qb.Select("*").From(name).ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build read table query")
	}

	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, crerr.Wrapf(err, "read table %s", name)
	}
	defer func() { _ = rows.Close() }()

	out := make(table.Table, 0, 64)
	for rows.Next() {
		record := map[string]any{}
		if err := rows.MapScan(record); err != nil {
			return nil, crerr.Wrapf(err, "scan row from table %s", name)
		}
		row := make(table.Row, len(record))
		for col, value := range record {
			if raw, ok := value.([]byte); ok {
				row[col] = string(raw)
				continue
			}
			row[col] = value
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, crerr.Wrapf(err, "iterate table %s", name)
	}

	return out, nil
}

// ReplaceTable drops and recreates the table with the given rows in one
// transaction. An empty row set just drops the table.
func (r *TableStore) ReplaceTable(ctx context.Context, name string, rows table.Table) error {
	if !validIdentifier(name) {
		return crerr.Newf("invalid table name %q", name)
	}

	columns := rows.Columns()
	for _, col := range columns {
		if !validIdentifier(col) {
			return crerr.Newf("invalid column name %q in table %s", col, name)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Wrapf(err, "begin tx replace table %s", name)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return crerr.Wrapf(err, "drop table %s", name)
	}

	if len(rows) > 0 {
		defs := make([]string, len(columns))
		for i, col := range columns {
			defs[i] = col + " TEXT"
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return crerr.Wrapf(err, "create table %s", name)
		}

		if err := r.insertRows(ctx, tx, name, columns, rows); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return crerr.Wrapf(err, "commit replace table %s", name)
	}

	return nil
}

func (r *TableStore) insertRows(ctx context.Context, tx *sqlx.Tx, name string, columns []string, rows table.Table) error {
	chunkSize := maxInsertParams / len(columns)
	if chunkSize < 1 {
		chunkSize = 1
	}

	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		builder := qb.InsertInto(name).Columns(columns...)
		for _, row := range rows[start:end] {
			values := make([]any, len(columns))
			for i, col := range columns {
				cell, ok := row[col]
				if !ok || cell == nil {
					values[i] = nil
					continue
				}
				values[i] = table.Canonical(cell)
			}
			builder = builder.Values(values...)
		}

		query, args, err := builder.ToSQL()
		if err != nil {
			return crerr.Wrapf(err, "build insert for table %s", name)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return crerr.Wrapf(err, "insert rows into table %s", name)
		}
	}

	return nil
}
