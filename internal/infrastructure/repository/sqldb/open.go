package sqldb

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open connects to the store described by dbURL. A postgres:// or
// postgresql:// URL selects the postgres driver; anything else is treated as
// a sqlite file path.
func Open(dbURL string) (*sqlx.DB, Dialect, error) {
	driver, dsn, dialect := resolveDriver(dbURL)

	db, err := otelsqlx.Open(driver, dsn)
	if err != nil {
		return nil, dialect, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, dialect, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	return db, dialect, nil
}

func resolveDriver(dbURL string) (driver, dsn string, dialect Dialect) {
	trimmed := strings.TrimSpace(dbURL)
	if parsed, err := url.Parse(trimmed); err == nil && parsed != nil {
		switch strings.ToLower(parsed.Scheme) {
		case "postgres", "postgresql":
			return "postgres", trimmed, DialectPostgres
		case "sqlite", "file":
			return "sqlite", strings.TrimPrefix(trimmed, parsed.Scheme+"://"), DialectSQLite
		}
	}

	return "sqlite", filepath.Clean(trimmed), DialectSQLite
}

func validIdentifier(name string) bool {
	return identifierRegex.MatchString(name)
}
