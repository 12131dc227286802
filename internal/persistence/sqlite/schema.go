package sqlite

import (
	"context"
	"fmt"
)

// Schema statements are idempotent so Migrate can run on every startup.
// Statements are kept as separate literals rather than one script split on
// semicolons; splitting breaks on semicolons embedded in SQL bodies.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS calendar_connections (
		id                     TEXT PRIMARY KEY,
		user_id                TEXT NOT NULL,
		provider               TEXT NOT NULL,
		provider_account_email TEXT NOT NULL DEFAULT '',
		is_active              INTEGER NOT NULL DEFAULT 1,
		sync_enabled           INTEGER NOT NULL DEFAULT 1,
		last_sync_at           TEXT,
		last_sync_status       TEXT NOT NULL DEFAULT '',
		failure_count          INTEGER NOT NULL DEFAULT 0,
		created_at             TEXT NOT NULL,
		updated_at             TEXT NOT NULL,
		UNIQUE (user_id, provider)
	)`,
	`CREATE TABLE IF NOT EXISTS calendar_watch_channels (
		user_id     TEXT PRIMARY KEY,
		channel_id  TEXT NOT NULL UNIQUE,
		resource_id TEXT NOT NULL,
		expiration  TEXT NOT NULL,
		webhook_url TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		remote_event_id TEXT NOT NULL,
		title           TEXT NOT NULL,
		start_time      TEXT NOT NULL,
		end_time        TEXT NOT NULL,
		status          TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled')),
		location        TEXT,
		description     TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL,
		UNIQUE (user_id, remote_event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meetings_user_start ON meetings (user_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS calendar_tokens (
		user_id       TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		resource_id TEXT NOT NULL DEFAULT '',
		details     TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_user ON audit_logs (user_id, created_at)`,
}

// Migrate applies the schema. Safe to call repeatedly.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: apply schema: %w", err)
		}
	}
	return nil
}
