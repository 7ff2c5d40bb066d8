// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package store

import (
	"context"
	"fmt"
)

// schemaStatements creates the three collections and their access paths.
// The UNIQUE constraint on (org_id, project_id, fingerprint) is the dedup
// backstop: batch inserts use ON CONFLICT DO NOTHING against it, so replays
// and cache-miss duplicates collapse to a single persisted record.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id           VARCHAR NOT NULL,
		org_id       VARCHAR NOT NULL,
		project_id   VARCHAR NOT NULL,
		user_id      VARCHAR NOT NULL,
		event_name   VARCHAR NOT NULL,
		ts           TIMESTAMP NOT NULL,
		properties   VARCHAR,
		session_id   VARCHAR,
		page_url     VARCHAR,
		user_agent   VARCHAR,
		ip_address   VARCHAR,
		fingerprint  VARCHAR NOT NULL,
		created_at   TIMESTAMP NOT NULL DEFAULT current_timestamp,
		UNIQUE (org_id, project_id, fingerprint)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tenant_ts
		ON events (org_id, project_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tenant_name_ts
		ON events (org_id, project_id, event_name, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tenant_user_ts
		ON events (org_id, project_id, user_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tenant_session_ts
		ON events (org_id, project_id, session_id, ts)`,

	`CREATE TABLE IF NOT EXISTS funnels (
		id           VARCHAR NOT NULL PRIMARY KEY,
		org_id       VARCHAR NOT NULL,
		project_id   VARCHAR NOT NULL,
		name         VARCHAR NOT NULL,
		description  VARCHAR,
		steps        VARCHAR NOT NULL,
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL,
		UNIQUE (org_id, project_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id           VARCHAR NOT NULL PRIMARY KEY,
		secret       VARCHAR NOT NULL UNIQUE,
		name         VARCHAR NOT NULL,
		org_id       VARCHAR NOT NULL,
		project_id   VARCHAR,
		permissions  VARCHAR NOT NULL,
		is_active    BOOLEAN NOT NULL DEFAULT true,
		last_used_at TIMESTAMP,
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_org
		ON api_keys (org_id)`,
}

// initSchema applies all schema statements. Statements are idempotent, so
// startup against an existing database is safe.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
