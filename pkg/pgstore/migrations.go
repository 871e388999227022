package pgstore

import "embed"

// MigrationsDir is the directory of Migrations holding the goose files.
const MigrationsDir = "migrations"

// Migrations embeds the schema, for pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
