// Package pgstore implements the organization, trigger firing and audit
// stores on PostgreSQL with pgx.
//
// The schema ships as embedded goose migrations:
//
//	err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log, pg.MigrateUp)
//
// Uniqueness does the concurrency work. A second insert of the same trigger
// firing fails with trigger.ErrAlreadyFired and a redelivered billing event
// with organization.ErrDuplicateEvent, so concurrent sweeps and webhook
// retries stay idempotent without application locks. Audit entries written
// inside OrganizationStore.Atomic share the organization transaction.
package pgstore
