package table

import (
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
)

// Fixed table names produced by the FPL endpoints.
const (
	NameChips             = "chips"
	NameMonths            = "months"
	NameFootballPlayers   = "football_players"
	NameFootballTeams     = "football_teams"
	NameGameWeeks         = "game_weeks"
	NameElementTypes      = "element_types"
	NameElementStats      = "element_stats"
	NameActiveChips       = "active_chips"
	NameAutomaticSubs     = "automatic_subs"
	NameEventHistory      = "event_history"
	NamePlayerPicks       = "player_picks"
	NameLeagueInfo        = "league_info"
	NameStandings         = "standings"
	NameCurrentSeason     = "current_season"
	NamePastSeasons       = "past_seasons"
	NamePlayerFixtures    = "player_fixtures"
	NamePlayerHistory     = "player_history"
	NamePlayerPastSeasons = "player_past_seasons"
)

// Row is one record of a table, keyed by column name.
type Row map[string]any

// Table is an ordered list of rows. Order is meaningful for comparison.
type Table []Row

// Set maps table names to their contents.
type Set map[string]Table

// Names returns the table names in the set, sorted.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Columns returns the sorted union of column names across all rows.
func (t Table) Columns() []string {
	seen := map[string]struct{}{}
	for _, row := range t {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// Column returns the canonical values of one column, row-aligned. The second
// return is false if any row lacks the column.
func (t Table) Column(name string) ([]string, bool) {
	values := make([]string, len(t))
	for i, row := range t {
		v, ok := row[name]
		if !ok {
			return nil, false
		}
		values[i] = Canonical(v)
	}
	return values, true
}

// Canonical renders a cell value as the TEXT form used for both storage and
// comparison: bools as 1/0, integral floats without the fraction, nested
// structures as JSON, nil as the empty string.
func Canonical(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case float64:
		return canonicalFloat(v)
	case float32:
		return canonicalFloat(float64(v))
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		encoded, err := sonic.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func canonicalFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Equal reports whether two tables are element-wise equal, in order.
func Equal(a, b Table) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !rowEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// rowEqual compares over the union of keys. A key absent from one row matches
// nil and the empty string in the other, the NULL fill the store writes for
// rows that lack a column.
func rowEqual(a, b Row) bool {
	for key, av := range a {
		if Canonical(av) != Canonical(b[key]) {
			return false
		}
	}
	for key, bv := range b {
		if _, ok := a[key]; ok {
			continue
		}
		if Canonical(bv) != "" {
			return false
		}
	}
	return true
}

// Int reads a row value as an int, tolerating the numeric types JSON decoding
// and the store produce.
func (r Row) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bool reads a row value as a bool, accepting the canonical 1/0 TEXT form.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		return v == "1" || v == "true"
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}
