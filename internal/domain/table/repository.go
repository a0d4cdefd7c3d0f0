package table

import "context"

// Store is the persisted-table boundary. ReplaceTable overwrites the whole
// table; there is no partial mutation.
type Store interface {
	TableExists(ctx context.Context, name string) (bool, error)
	ReadTable(ctx context.Context, name string) (Table, error)
	ReplaceTable(ctx context.Context, name string, rows Table) error
}
