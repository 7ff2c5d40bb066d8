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

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/models"
)

// InsertResult reports the outcome of a batch insert.
type InsertResult struct {
	Inserted   int
	Duplicates int
	Failed     []models.SkippedEvent
}

// InsertEvents persists a batch. Per-event failures are recorded in the
// result and do not abort the batch; rows colliding on (org, project,
// fingerprint) count as duplicates. The whole batch runs in one
// transaction so queue-job retries replay cleanly against ON CONFLICT.
func (db *DB) InsertEvents(ctx context.Context, events []*models.Event) (InsertResult, error) {
	result := InsertResult{}
	if len(events) == 0 {
		return result, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin insert batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
			(id, org_id, project_id, user_id, event_name, ts, properties,
			 session_id, page_url, user_agent, ip_address, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, project_id, fingerprint) DO NOTHING`)
	if err != nil {
		return result, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, event := range events {
		props, merr := json.Marshal(event.Properties)
		if merr != nil {
			result.Failed = append(result.Failed, models.SkippedEvent{
				Index: i, Reason: "properties not serializable",
			})
			continue
		}

		res, execErr := stmt.ExecContext(ctx,
			event.ID, event.OrgID, event.ProjectID, event.UserID,
			event.EventName, event.Timestamp.UTC(), string(props),
			nullable(event.SessionID), nullable(event.PageURL),
			nullable(event.UserAgent), nullable(event.IPAddress),
			event.Fingerprint)
		if execErr != nil {
			logging.Warn().Err(execErr).Str("event_name", event.EventName).Msg("event insert failed")
			result.Failed = append(result.Failed, models.SkippedEvent{
				Index: i, Reason: "insert failed",
			})
			continue
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			result.Duplicates++
		} else {
			result.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("commit insert batch: %w", err)
	}
	return result, nil
}

// EventFilter narrows an event scan. Zero values mean "no constraint".
type EventFilter struct {
	UserID    string
	EventName string
	SessionID string
	Start     time.Time
	End       time.Time
	Ascending bool
	Limit     int
	Offset    int
}

// QueryEvents returns events for a tenant matching the filter, ordered by
// timestamp.
func (db *DB) QueryEvents(ctx context.Context, tenant models.Tenant, filter EventFilter) ([]models.Event, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := tenantConditions(tenant, filter)
	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, project_id, user_id, event_name, ts, properties,
		       session_id, page_url, user_agent, ip_address
		FROM events
		WHERE %s
		ORDER BY ts %s`, strings.Join(where, " AND "), order)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountEvents returns the number of events matching the filter.
func (db *DB) CountEvents(ctx context.Context, tenant models.Tenant, filter EventFilter) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := tenantConditions(tenant, filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM events WHERE %s`, strings.Join(where, " AND "))

	var count int64
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// CountDistinctUsers returns the distinct user count matching the filter.
func (db *DB) CountDistinctUsers(ctx context.Context, tenant models.Tenant, filter EventFilter) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := tenantConditions(tenant, filter)
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT user_id) FROM events WHERE %s`,
		strings.Join(where, " AND "))

	var count int64
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct users: %w", err)
	}
	return count, nil
}

// tenantConditions builds the WHERE fragments for a tenant-scoped scan.
// The tenant pair is always the first two conditions.
func tenantConditions(tenant models.Tenant, filter EventFilter) ([]string, []any) {
	where := []string{"org_id = ?", "project_id = ?"}
	args := []any{tenant.OrgID, tenant.ProjectID}

	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.EventName != "" {
		where = append(where, "event_name = ?")
		args = append(args, filter.EventName)
	}
	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if !filter.Start.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, filter.Start.UTC())
	}
	if !filter.End.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, filter.End.UTC())
	}
	return where, args
}

// scanEvent reads one event row, decoding the properties JSON.
func scanEvent(rows *sql.Rows) (models.Event, error) {
	var (
		event     models.Event
		props     sql.NullString
		sessionID sql.NullString
		pageURL   sql.NullString
		userAgent sql.NullString
		ipAddress sql.NullString
	)
	err := rows.Scan(&event.ID, &event.OrgID, &event.ProjectID, &event.UserID,
		&event.EventName, &event.Timestamp, &props,
		&sessionID, &pageURL, &userAgent, &ipAddress)
	if err != nil {
		return event, fmt.Errorf("scan event: %w", err)
	}

	event.Timestamp = event.Timestamp.UTC()
	event.SessionID = sessionID.String
	event.PageURL = pageURL.String
	event.UserAgent = userAgent.String
	event.IPAddress = ipAddress.String

	if props.Valid && props.String != "" && props.String != "null" {
		if err := json.Unmarshal([]byte(props.String), &event.Properties); err != nil {
			logging.Warn().Str("event_id", event.ID).Msg("undecodable properties payload")
		}
	}
	return event, nil
}

// nullable maps "" onto SQL NULL for optional columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsNotFound reports whether err is the store's not-found sentinel or a
// bare sql.ErrNoRows.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
