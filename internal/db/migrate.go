package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/pressly/goose/v3"
)

// RunMigrations executes all pending goose migrations against a SQLite file.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(EmbedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// applyUpSections runs the "-- +goose Up" part of every embedded migration in
// version order. DuckDB has no goose dialect, so it is seeded this way; the
// migrations are written in SQL both engines accept.
func applyUpSections(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(EmbedMigrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(EmbedMigrations, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		up := upSection(string(raw))
		if strings.TrimSpace(up) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, up); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// upSection returns the text between the goose Up and Down annotations.
func upSection(migration string) string {
	const upMarker, downMarker = "-- +goose Up", "-- +goose Down"
	_, rest, ok := strings.Cut(migration, upMarker)
	if !ok {
		return ""
	}
	up, _, _ := strings.Cut(rest, downMarker)
	return up
}
