package db

import "embed"

// EmbedMigrations contains the embedded demo-data migration files.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
