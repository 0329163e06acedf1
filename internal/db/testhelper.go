package db

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestSQLiteSource seeds a SQLite file in t.TempDir() with the demo fact
// table and returns its path.
func NewTestSQLiteSource(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.sqlite")
	if err := SeedSQLite(path); err != nil {
		t.Fatalf("seed test sqlite: %v", err)
	}
	return path
}

// NewTestDuckDBSource seeds a DuckDB file in t.TempDir() with the demo fact
// table and returns its path.
func NewTestDuckDBSource(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.duckdb")
	if err := SeedDuckDB(context.Background(), path); err != nil {
		t.Fatalf("seed test duckdb: %v", err)
	}
	return path
}
