package db

import "embed"

// EmbedMigrations holds the registry migrations.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
