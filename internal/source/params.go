// Package source connects to the relational side of the bridge: it opens
// DuckDB, SQLite, PostgreSQL and Druid sources, reads column metadata from
// their catalogs, runs tabular queries, and discovers the measure/dimension
// split of a table.
package source

import (
	"net/url"
	"path/filepath"
	"strings"

	"duck-olap/internal/domain"
)

// Supported drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
	DriverDruid    = "druid"
)

// ConnectionParams identifies a relational source. DefaultSchema is used
// when a caller does not name a schema explicitly.
type ConnectionParams struct {
	Driver        string `json:"driver" yaml:"driver"`
	DSN           string `json:"dsn" yaml:"dsn"`
	DefaultSchema string `json:"default_schema,omitempty" yaml:"default_schema,omitempty"`
}

// ParseConnectionString turns a source string into connection parameters.
// Accepted forms:
//
//	duckdb:                      in-memory DuckDB
//	duckdb:/data/wiki.duckdb     DuckDB file (also duckdb:///data/wiki.duckdb)
//	sqlite:/data/wiki.sqlite     SQLite file (also sqlite3:)
//	postgres://user@host/db      PostgreSQL (also postgresql://)
//	druid://broker:8082          Druid SQL over HTTP (druid+https:// for TLS)
//	/data/wiki.duckdb            bare paths are recognized by extension
func ParseConnectionString(s string) (ConnectionParams, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ConnectionParams{}, domain.ErrValidation("source connection string is required")
	}
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return ConnectionParams{Driver: DriverPostgres, DSN: s, DefaultSchema: "public"}, nil
	case strings.HasPrefix(lower, "druid+https://"):
		return ConnectionParams{Driver: DriverDruid, DSN: "https://" + s[len("druid+https://"):], DefaultSchema: "druid"}, nil
	case strings.HasPrefix(lower, "druid+http://"):
		return ConnectionParams{Driver: DriverDruid, DSN: "http://" + s[len("druid+http://"):], DefaultSchema: "druid"}, nil
	case strings.HasPrefix(lower, "druid://"):
		return ConnectionParams{Driver: DriverDruid, DSN: "http://" + s[len("druid://"):], DefaultSchema: "druid"}, nil
	case strings.HasPrefix(lower, "duckdb:"):
		return ConnectionParams{Driver: DriverDuckDB, DSN: filePart(s[len("duckdb:"):]), DefaultSchema: "main"}, nil
	case strings.HasPrefix(lower, "sqlite3:"):
		return sqliteParams(filePart(s[len("sqlite3:"):]))
	case strings.HasPrefix(lower, "sqlite:"):
		return sqliteParams(filePart(s[len("sqlite:"):]))
	}

	switch strings.ToLower(filepath.Ext(s)) {
	case ".duckdb", ".ddb":
		return ConnectionParams{Driver: DriverDuckDB, DSN: s, DefaultSchema: "main"}, nil
	case ".sqlite", ".sqlite3", ".db":
		return sqliteParams(s)
	}
	return ConnectionParams{}, domain.ErrValidation("unrecognized source %q: use duckdb:, sqlite:, postgres:// or druid://", s)
}

func sqliteParams(path string) (ConnectionParams, error) {
	if path == "" {
		return ConnectionParams{}, domain.ErrValidation("sqlite source requires a file path")
	}
	return ConnectionParams{Driver: DriverSQLite, DSN: path, DefaultSchema: "main"}, nil
}

// filePart strips an optional "//" authority prefix and the ":memory:" alias.
func filePart(rest string) string {
	rest = strings.TrimPrefix(rest, "//")
	if rest == ":memory:" {
		return ""
	}
	return rest
}

// String renders the parameters for logs with any password redacted.
func (p ConnectionParams) String() string {
	dsn := p.DSN
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		dsn = u.Redacted()
	}
	if dsn == "" {
		dsn = ":memory:"
	}
	return p.Driver + ":" + dsn
}

// Schema returns schema when set and the connection default otherwise.
func (p ConnectionParams) Schema(schema string) string {
	if schema != "" {
		return schema
	}
	return p.DefaultSchema
}
