package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver

	"duck-olap/internal/ddl"
	"duck-olap/internal/domain"
)

// DemoTable is the fact table created by the seed migrations.
const DemoTable = "wikiticker"

// SeedSQLite creates (or upgrades) the demo fact table in a SQLite file.
func SeedSQLite(path string) error {
	db, err := OpenSQLite(path, "write", 0)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	return RunMigrations(db)
}

// SeedDuckDB creates the demo fact table in a DuckDB file. It fails if the
// table already exists.
func SeedDuckDB(ctx context.Context, path string) error {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := applyUpSections(ctx, db); err != nil {
		return fmt.Errorf("seed duckdb: %w", err)
	}
	return nil
}

// Seed creates the demo fact table in the file at path using driver
// ("sqlite3" or "duckdb") and, when table differs from DemoTable, renames
// it. The name must be a plain identifier.
func Seed(ctx context.Context, driver, path, table string) error {
	if table == "" {
		table = DemoTable
	}
	if err := ddl.ValidateIdentifier(table); err != nil {
		return domain.ErrValidation("seed table %q: %v", table, err)
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "sqlite3":
		if err := SeedSQLite(path); err != nil {
			return err
		}
		db, err = OpenSQLite(path, "write", 0)
	case "duckdb":
		if err := SeedDuckDB(ctx, path); err != nil {
			return err
		}
		db, err = sql.Open("duckdb", path)
	default:
		return domain.ErrValidation("cannot seed a %q source: use a sqlite or duckdb file", driver)
	}
	if err != nil {
		return fmt.Errorf("reopen %s: %w", path, err)
	}
	defer db.Close() //nolint:errcheck

	if table == DemoTable {
		return nil
	}
	rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", ddl.QuoteIdentifier(DemoTable), ddl.QuoteIdentifier(table))
	if _, err := db.ExecContext(ctx, rename); err != nil {
		return fmt.Errorf("rename seed table: %w", err)
	}
	return nil
}
