package app

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// dialectIsSQLite reports whether the DB URL points at a sqlite file rather
// than a postgres server.
func dialectIsSQLite(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == nil {
		return true
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return false
	default:
		return true
	}
}

// prepareDBURL creates the parent directory for a sqlite file path so the
// default ./data/fpl_data.db location works on first run.
func prepareDBURL(raw string, sqlite bool) string {
	trimmed := strings.TrimSpace(raw)
	if !sqlite {
		return trimmed
	}

	path := strings.TrimPrefix(strings.TrimPrefix(trimmed, "sqlite://"), "file://")
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}

	return trimmed
}
