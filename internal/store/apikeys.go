// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftline/driftline/internal/models"
)

// CreateAPIKey persists a new key. Returns ErrConflict when the key value
// already exists (the random generator collided, callers regenerate) or the
// org already has a key with the same name.
func (db *DB) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var existing int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM api_keys
		WHERE secret = ? OR (org_id = ? AND name = ?)`,
		key.Key, key.OrgID, key.Name).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check api key uniqueness: %w", err)
	}
	if existing > 0 {
		return ErrConflict
	}

	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	key.CreatedAt = now
	key.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO api_keys
			(id, secret, name, org_id, project_id, permissions, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.Key, key.Name, key.OrgID, nullable(key.ProjectID),
		encodePermissions(key.Permissions), key.IsActive, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKeyBySecret looks up an active key by its secret value. This is the
// authentication path; inactive and unknown keys both return ErrNotFound so
// callers cannot distinguish them.
func (db *DB) GetAPIKeyBySecret(ctx context.Context, secret string) (*models.APIKey, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, secret, name, org_id, project_id, permissions, is_active, last_used_at, created_at, updated_at
		FROM api_keys
		WHERE secret = ? AND is_active = true`, secret)

	key, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return key, err
}

// GetAPIKey returns a key by id within an org.
func (db *DB) GetAPIKey(ctx context.Context, orgID, id string) (*models.APIKey, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, secret, name, org_id, project_id, permissions, is_active, last_used_at, created_at, updated_at
		FROM api_keys
		WHERE id = ? AND org_id = ?`, id, orgID)

	key, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return key, err
}

// ListAPIKeys returns all keys of an org, newest first.
func (db *DB) ListAPIKeys(ctx context.Context, orgID string) ([]models.APIKey, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, secret, name, org_id, project_id, permissions, is_active, last_used_at, created_at, updated_at
		FROM api_keys
		WHERE org_id = ?
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	return keys, rows.Err()
}

// UpdateAPIKey rewrites a key's mutable attributes.
func (db *DB) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	key.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE api_keys
		SET name = ?, permissions = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND org_id = ?`,
		key.Name, encodePermissions(key.Permissions), key.IsActive, key.UpdatedAt,
		key.ID, key.OrgID)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey removes a key within an org.
func (db *DB) DeleteAPIKey(ctx context.Context, orgID, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM api_keys WHERE id = ? AND org_id = ?`, id, orgID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAPIKeys returns the total number of keys across all orgs. Used by
// the startup bootstrap check.
func (db *DB) CountAPIKeys(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

// TouchAPIKey records a successful use. Best-effort: authentication does
// not depend on it.
func (db *DB) TouchAPIKey(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// encodePermissions stores the permission set as a comma-joined string.
func encodePermissions(perms []models.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

// decodePermissions parses the stored permission set.
func decodePermissions(encoded string) []models.Permission {
	if encoded == "" {
		return nil
	}
	parts := strings.Split(encoded, ",")
	perms := make([]models.Permission, 0, len(parts))
	for _, p := range parts {
		perms = append(perms, models.Permission(p))
	}
	return perms
}

func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	var (
		key         models.APIKey
		projectID   sql.NullString
		permissions string
		lastUsed    sql.NullTime
	)
	err := row.Scan(&key.ID, &key.Key, &key.Name, &key.OrgID, &projectID,
		&permissions, &key.IsActive, &lastUsed, &key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		return nil, err
	}
	key.ProjectID = projectID.String
	key.Permissions = decodePermissions(permissions)
	if lastUsed.Valid {
		t := lastUsed.Time.UTC()
		key.LastUsedAt = &t
	}
	key.CreatedAt = key.CreatedAt.UTC()
	key.UpdatedAt = key.UpdatedAt.UTC()
	return &key, nil
}
