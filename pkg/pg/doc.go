// Package pg opens the PostgreSQL pool and runs schema migrations.
//
// Connect retries the first ping so the service can start alongside the
// database. Migrate bridges the pool to database/sql for goose and reads
// migrations from any fs.FS, typically the embedded files of pgstore.
//
// The error helpers classify *pgconn.PgError values. Stores treat a unique
// violation as a lost race rather than a failure.
package pg
