package source

import (
	"context"
	"strconv"

	"duck-olap/internal/ddl"
	"duck-olap/internal/domain"
)

// Conn is an open connection to a relational source. Callers own the
// connection and must Close it.
type Conn interface {
	// Columns returns the columns of schema.table in catalog order. A
	// missing table yields a *domain.NotFoundError.
	Columns(ctx context.Context, schema, table string) ([]domain.ColumnMetadata, error)
	// Query runs a tabular query and materializes the result.
	Query(ctx context.Context, query string, args ...interface{}) (*Result, error)
	// Dialect describes how to write SQL for this source.
	Dialect() Dialect
	Close() error
}

// Result is a fully materialized tabular result.
type Result struct {
	Columns []string
	Rows    [][]interface{}
}

// Dialect captures the SQL differences between sources that generated
// queries care about.
type Dialect struct {
	Name string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
}

// Placeholder returns the bind placeholder for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes an identifier.
func (d Dialect) QuoteIdent(name string) string {
	return ddl.QuoteIdentifier(name)
}

// Table returns the quoted, schema-qualified table reference.
func (d Dialect) Table(schema, table string) string {
	return ddl.QualifiedName(schema, table)
}

// Text renders expr cast to a character type so member values compare as
// strings on every source.
func (d Dialect) Text(expr string) string {
	return "CAST(" + expr + " AS VARCHAR)"
}

var (
	duckdbDialect   = Dialect{Name: DriverDuckDB}
	sqliteDialect   = Dialect{Name: DriverSQLite}
	postgresDialect = Dialect{Name: DriverPostgres, numbered: true}
	druidDialect    = Dialect{Name: DriverDruid}
)

// DialectFor returns the dialect of a driver. Unknown drivers get the
// DuckDB dialect.
func DialectFor(driver string) Dialect {
	switch driver {
	case DriverSQLite:
		return sqliteDialect
	case DriverPostgres:
		return postgresDialect
	case DriverDruid:
		return druidDialect
	default:
		return duckdbDialect
	}
}

// Open connects to the source described by params. The connection is
// verified before it is returned.
func Open(ctx context.Context, params ConnectionParams) (Conn, error) {
	switch params.Driver {
	case DriverDuckDB:
		return openDuckDB(ctx, params)
	case DriverSQLite:
		return openSQLite(ctx, params)
	case DriverPostgres:
		return openPostgres(ctx, params)
	case DriverDruid:
		return openDruid(ctx, params)
	default:
		return nil, domain.ErrValidation("unsupported source driver %q", params.Driver)
	}
}

// Opener opens source connections. It exists so callers can substitute a
// fake in tests.
type Opener interface {
	Open(ctx context.Context, params ConnectionParams) (Conn, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, params ConnectionParams) (Conn, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, params ConnectionParams) (Conn, error) {
	return f(ctx, params)
}

// DefaultOpener opens real connections via Open.
var DefaultOpener Opener = OpenerFunc(Open)
