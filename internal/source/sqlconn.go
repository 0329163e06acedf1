package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver

	"duck-olap/internal/classify"
	internaldb "duck-olap/internal/db"
	"duck-olap/internal/domain"
)

// columnLister reads column metadata for one table from a catalog.
type columnLister func(ctx context.Context, db *sql.DB, d Dialect, schema, table string) ([]domain.ColumnMetadata, error)

// sqlConn is a Conn backed by database/sql.
type sqlConn struct {
	db      *sql.DB
	dialect Dialect
	columns columnLister
}

func openDuckDB(ctx context.Context, params ConnectionParams) (Conn, error) {
	db, err := sql.Open("duckdb", duckDBReadOnlyDSN(params.DSN))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &sqlConn{db: db, dialect: duckdbDialect, columns: informationSchemaColumns}, nil
}

// duckDBReadOnlyDSN appends access_mode=read_only to a file DSN, keeping
// any options it already carries. In-memory databases stay writable.
func duckDBReadOnlyDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "access_mode=read_only"
}

func openSQLite(_ context.Context, params ConnectionParams) (Conn, error) {
	db, err := internaldb.OpenSQLite(params.DSN, "read", 1)
	if err != nil {
		return nil, err
	}
	return &sqlConn{db: db, dialect: sqliteDialect, columns: sqliteColumns}, nil
}

func openPostgres(ctx context.Context, params ConnectionParams) (Conn, error) {
	db, err := sql.Open("pgx", params.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &sqlConn{db: db, dialect: postgresDialect, columns: informationSchemaColumns}, nil
}

func (c *sqlConn) Columns(ctx context.Context, schema, table string) ([]domain.ColumnMetadata, error) {
	return c.columns(ctx, c.db, c.dialect, schema, table)
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...interface{}) (*Result, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	return materialize(rows)
}

func (c *sqlConn) Dialect() Dialect { return c.dialect }

func (c *sqlConn) Close() error { return c.db.Close() }

// informationSchemaColumns reads information_schema, which DuckDB and
// PostgreSQL both expose.
func informationSchemaColumns(ctx context.Context, db *sql.DB, d Dialect, schema, table string) ([]domain.ColumnMetadata, error) {
	var n int64
	err := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM information_schema.tables WHERE table_schema = %s AND table_name = %s",
			d.Placeholder(1), d.Placeholder(2)),
		schema, table).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("lookup table: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrNotFound("table %s.%s not found", schema, table)
	}

	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT column_name, data_type, ordinal_position
FROM information_schema.columns
WHERE table_schema = %s AND table_name = %s
ORDER BY ordinal_position`, d.Placeholder(1), d.Placeholder(2)),
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var cols []domain.ColumnMetadata
	for rows.Next() {
		var (
			c       domain.ColumnMetadata
			ordinal int64
		)
		if err := rows.Scan(&c.Name, &c.TypeName, &ordinal); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Ordinal = int(ordinal)
		c.Type = classify.ParseTypeName(c.TypeName)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return cols, nil
}

// sqliteColumns reads pragma_table_info. SQLite tables always have at least
// one column, so an empty result means the table does not exist.
func sqliteColumns(ctx context.Context, db *sql.DB, _ Dialect, schema, table string) ([]domain.ColumnMetadata, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT cid, name, type FROM pragma_table_info(?, ?) ORDER BY cid", table, schema)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var cols []domain.ColumnMetadata
	for rows.Next() {
		var (
			c   domain.ColumnMetadata
			cid int64
		)
		if err := rows.Scan(&cid, &c.Name, &c.TypeName); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Ordinal = int(cid) + 1
		c.Type = classify.ParseTypeName(c.TypeName)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound("table %s.%s not found", schema, table)
	}
	return cols, nil
}

// materialize reads every row of rows into memory.
func materialize(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return res, nil
}
