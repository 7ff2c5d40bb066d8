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
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/driftline/driftline/internal/models"
)

// CreateFunnel persists a funnel. Returns ErrConflict when the tenant
// already has a funnel with the same name.
func (db *DB) CreateFunnel(ctx context.Context, funnel *models.Funnel) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var existing int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM funnels
		WHERE org_id = ? AND project_id = ? AND name = ?`,
		funnel.OrgID, funnel.ProjectID, funnel.Name).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check funnel name: %w", err)
	}
	if existing > 0 {
		return ErrConflict
	}

	steps, err := json.Marshal(funnel.Steps)
	if err != nil {
		return fmt.Errorf("marshal funnel steps: %w", err)
	}

	if funnel.ID == "" {
		funnel.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	funnel.CreatedAt = now
	funnel.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO funnels (id, org_id, project_id, name, description, steps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		funnel.ID, funnel.OrgID, funnel.ProjectID, funnel.Name,
		nullable(funnel.Description), string(steps), funnel.CreatedAt, funnel.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert funnel: %w", err)
	}
	return nil
}

// GetFunnel returns a funnel by id under the caller's tenant.
// Returns ErrNotFound for missing ids and for funnels of other tenants.
func (db *DB) GetFunnel(ctx context.Context, tenant models.Tenant, id string) (*models.Funnel, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, org_id, project_id, name, description, steps, created_at, updated_at
		FROM funnels
		WHERE id = ? AND org_id = ? AND project_id = ?`,
		id, tenant.OrgID, tenant.ProjectID)

	funnel, err := scanFunnel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return funnel, err
}

// ListFunnels returns all funnels of a tenant, sorted by name.
func (db *DB) ListFunnels(ctx context.Context, tenant models.Tenant) ([]models.Funnel, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, org_id, project_id, name, description, steps, created_at, updated_at
		FROM funnels
		WHERE org_id = ? AND project_id = ?
		ORDER BY name ASC`,
		tenant.OrgID, tenant.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list funnels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var funnels []models.Funnel
	for rows.Next() {
		funnel, err := scanFunnel(rows)
		if err != nil {
			return nil, err
		}
		funnels = append(funnels, *funnel)
	}
	return funnels, rows.Err()
}

// UpdateFunnel replaces a funnel's mutable fields. The funnel must already
// belong to the tenant. Renames that collide return ErrConflict.
func (db *DB) UpdateFunnel(ctx context.Context, funnel *models.Funnel) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var existing int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM funnels
		WHERE org_id = ? AND project_id = ? AND name = ? AND id <> ?`,
		funnel.OrgID, funnel.ProjectID, funnel.Name, funnel.ID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check funnel name: %w", err)
	}
	if existing > 0 {
		return ErrConflict
	}

	steps, err := json.Marshal(funnel.Steps)
	if err != nil {
		return fmt.Errorf("marshal funnel steps: %w", err)
	}
	funnel.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE funnels
		SET name = ?, description = ?, steps = ?, updated_at = ?
		WHERE id = ? AND org_id = ? AND project_id = ?`,
		funnel.Name, nullable(funnel.Description), string(steps), funnel.UpdatedAt,
		funnel.ID, funnel.OrgID, funnel.ProjectID)
	if err != nil {
		return fmt.Errorf("update funnel: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFunnel removes a funnel under the caller's tenant.
func (db *DB) DeleteFunnel(ctx context.Context, tenant models.Tenant, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM funnels
		WHERE id = ? AND org_id = ? AND project_id = ?`,
		id, tenant.OrgID, tenant.ProjectID)
	if err != nil {
		return fmt.Errorf("delete funnel: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFunnel(row rowScanner) (*models.Funnel, error) {
	var (
		funnel      models.Funnel
		description sql.NullString
		steps       string
	)
	err := row.Scan(&funnel.ID, &funnel.OrgID, &funnel.ProjectID, &funnel.Name,
		&description, &steps, &funnel.CreatedAt, &funnel.UpdatedAt)
	if err != nil {
		return nil, err
	}
	funnel.Description = description.String
	funnel.CreatedAt = funnel.CreatedAt.UTC()
	funnel.UpdatedAt = funnel.UpdatedAt.UTC()

	if err := json.Unmarshal([]byte(steps), &funnel.Steps); err != nil {
		return nil, fmt.Errorf("decode funnel steps: %w", err)
	}
	return &funnel, nil
}
