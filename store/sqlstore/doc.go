// Package sqlstore is the SQL implementation of the credential store, the
// tenant graph, and the durable session log.
//
// One Store satisfies tenantAuth.AccountStore, tenantAuth.TenantGraph, and
// tenantAuth.SessionRecorder. It runs on SQLite (mattn/go-sqlite3) or
// PostgreSQL (pgx stdlib driver); queries are written with "?" placeholders
// and rebound per dialect. The schema ships as embedded goose migrations,
// applied with Store.Migrate.
package sqlstore
