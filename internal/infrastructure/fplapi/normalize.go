package fplapi

import (
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/fpl-collector/internal/domain/table"
)

// listSection reads a required array-of-objects section.
func listSection(payload map[string]any, key string) (table.Table, error) {
	value, ok := payload[key]
	if !ok || value == nil {
		return nil, crerr.Newf("section %s is missing", key)
	}

	items, ok := value.([]any)
	if !ok {
		return nil, crerr.Newf("section %s is not a list", key)
	}

	rows := make(table.Table, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, crerr.Newf("section %s contains a non-object item", key)
		}
		rows = append(rows, table.Row(row))
	}

	return rows, nil
}

// objectSection reads a required object section as a single-row table.
func objectSection(payload map[string]any, key string) (table.Table, error) {
	value, ok := payload[key]
	if !ok || value == nil {
		return nil, crerr.Newf("section %s is missing", key)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, crerr.Newf("section %s is not an object", key)
	}

	return table.Table{table.Row(obj)}, nil
}

// optionalSection reads a manager sub-table section. Missing or null values,
// and values of an unexpected shape, report absence rather than an error.
// Objects become a single row; a bare scalar becomes a one-cell row.
func optionalSection(payload map[string]any, key string, singleRow bool) (table.Table, bool) {
	value, ok := payload[key]
	if !ok || value == nil {
		return nil, false
	}

	switch v := value.(type) {
	case map[string]any:
		return table.Table{table.Row(v)}, true
	case []any:
		if singleRow {
			// entry_history is an object on the wire; a list here is malformed.
			return nil, false
		}
		rows := make(table.Table, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			rows = append(rows, table.Row(obj))
		}
		return rows, true
	default:
		// Scalars (the active chip name) become a one-cell row.
		if singleRow {
			return nil, false
		}
		return table.Table{table.Row{"value": v}}, true
	}
}
