// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Aggregation queries backing the analytics engine. Each function issues a
// single tenant-scoped statement; multi-phase reductions (funnel membership,
// retention intersection) happen in the analytics package on the returned
// primitives.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/driftline/driftline/internal/models"
)

// FirstOccurrences returns, per user, the earliest timestamp of eventName
// within [start, end] under the optional property predicate. This is the
// funnel-step primitive and the retention-cohort primitive.
func (db *DB) FirstOccurrences(ctx context.Context, tenant models.Tenant, eventName string, pred *models.Predicate, start, end time.Time) (map[string]time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where := []string{"org_id = ?", "project_id = ?", "event_name = ?", "ts >= ?", "ts <= ?"}
	args := []any{tenant.OrgID, tenant.ProjectID, eventName, start.UTC(), end.UTC()}

	if pred != nil {
		fragment, predArgs, err := predicateSQL(pred)
		if err != nil {
			return nil, fmt.Errorf("compile step filter: %w", err)
		}
		where = append(where, fragment)
		args = append(args, predArgs...)
	}

	query := fmt.Sprintf(`
		SELECT user_id, MIN(ts)
		FROM events
		WHERE %s
		GROUP BY user_id`, strings.Join(where, " AND "))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("first occurrences of %s: %w", eventName, err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]time.Time)
	for rows.Next() {
		var (
			userID string
			first  time.Time
		)
		if err := rows.Scan(&userID, &first); err != nil {
			return nil, fmt.Errorf("scan first occurrence: %w", err)
		}
		result[userID] = first.UTC()
	}
	return result, rows.Err()
}

// AllOccurrences returns, per user, every timestamp of eventName within
// [start, end] under the optional predicate, ascending per user. Funnels
// need the full sequence for time-window chaining, not just the first hit.
func (db *DB) AllOccurrences(ctx context.Context, tenant models.Tenant, eventName string, pred *models.Predicate, start, end time.Time) (map[string][]time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where := []string{"org_id = ?", "project_id = ?", "event_name = ?", "ts >= ?", "ts <= ?"}
	args := []any{tenant.OrgID, tenant.ProjectID, eventName, start.UTC(), end.UTC()}

	if pred != nil {
		fragment, predArgs, err := predicateSQL(pred)
		if err != nil {
			return nil, fmt.Errorf("compile step filter: %w", err)
		}
		where = append(where, fragment)
		args = append(args, predArgs...)
	}

	query := fmt.Sprintf(`
		SELECT user_id, ts
		FROM events
		WHERE %s
		ORDER BY user_id, ts`, strings.Join(where, " AND "))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("occurrences of %s: %w", eventName, err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string][]time.Time)
	for rows.Next() {
		var (
			userID string
			ts     time.Time
		)
		if err := rows.Scan(&userID, &ts); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		result[userID] = append(result[userID], ts.UTC())
	}
	return result, rows.Err()
}

// DistinctActiveUsers returns the distinct users with any event in
// [start, end). The retention operator intersects this with the cohort.
func (db *DB) DistinctActiveUsers(ctx context.Context, tenant models.Tenant, start, end time.Time) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT user_id
		FROM events
		WHERE org_id = ? AND project_id = ? AND ts >= ? AND ts < ?`,
		tenant.OrgID, tenant.ProjectID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("distinct active users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		users = append(users, userID)
	}
	return users, rows.Err()
}

// bucketExpr maps a metrics interval onto a DuckDB date_trunc unit.
// date_trunc('week', ...) starts buckets on the ISO Monday.
func bucketExpr(interval string) (string, error) {
	switch interval {
	case models.IntervalHourly:
		return "date_trunc('hour', ts)", nil
	case models.IntervalDaily:
		return "date_trunc('day', ts)", nil
	case models.IntervalWeekly:
		return "date_trunc('week', ts)", nil
	case models.IntervalMonthly:
		return "date_trunc('month', ts)", nil
	default:
		return "", fmt.Errorf("unknown interval %q", interval)
	}
}

// MetricBuckets returns the time-bucketed (count, uniqueUsers) series for
// one event name, ascending by bucket start.
func (db *DB) MetricBuckets(ctx context.Context, tenant models.Tenant, eventName, interval string, pred *models.Predicate, start, end time.Time) ([]models.MetricsBucket, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	bucket, err := bucketExpr(interval)
	if err != nil {
		return nil, err
	}

	where := []string{"org_id = ?", "project_id = ?", "event_name = ?", "ts >= ?", "ts <= ?"}
	args := []any{tenant.OrgID, tenant.ProjectID, eventName, start.UTC(), end.UTC()}

	if pred != nil {
		fragment, predArgs, perr := predicateSQL(pred)
		if perr != nil {
			return nil, fmt.Errorf("compile metrics filter: %w", perr)
		}
		where = append(where, fragment)
		args = append(args, predArgs...)
	}

	query := fmt.Sprintf(`
		SELECT %s AS bucket, COUNT(*), COUNT(DISTINCT user_id)
		FROM events
		WHERE %s
		GROUP BY bucket
		ORDER BY bucket ASC`, bucket, strings.Join(where, " AND "))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("metric buckets for %s: %w", eventName, err)
	}
	defer func() { _ = rows.Close() }()

	var series []models.MetricsBucket
	for rows.Next() {
		var b models.MetricsBucket
		if err := rows.Scan(&b.BucketStart, &b.Count, &b.UniqueUsers); err != nil {
			return nil, fmt.Errorf("scan metric bucket: %w", err)
		}
		b.BucketStart = b.BucketStart.UTC()
		series = append(series, b)
	}
	return series, rows.Err()
}

// MetricTotals returns the range-wide count and distinct-user count for one
// event name. The distinct count deliberately spans the whole range; it is
// not the sum of per-bucket unique counts.
func (db *DB) MetricTotals(ctx context.Context, tenant models.Tenant, eventName string, pred *models.Predicate, start, end time.Time) (count, uniqueUsers int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where := []string{"org_id = ?", "project_id = ?", "event_name = ?", "ts >= ?", "ts <= ?"}
	args := []any{tenant.OrgID, tenant.ProjectID, eventName, start.UTC(), end.UTC()}

	if pred != nil {
		fragment, predArgs, perr := predicateSQL(pred)
		if perr != nil {
			return 0, 0, fmt.Errorf("compile metrics filter: %w", perr)
		}
		where = append(where, fragment)
		args = append(args, predArgs...)
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(DISTINCT user_id)
		FROM events
		WHERE %s`, strings.Join(where, " AND "))

	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count, &uniqueUsers); err != nil {
		return 0, 0, fmt.Errorf("metric totals for %s: %w", eventName, err)
	}
	return count, uniqueUsers, nil
}

// EventSummary returns per-event (count, uniqueUsers) within [start, end],
// descending by count, plus the range totals with distinct users counted
// across all event names.
func (db *DB) EventSummary(ctx context.Context, tenant models.Tenant, start, end time.Time) ([]models.EventSummaryItem, int64, int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT event_name, COUNT(*), COUNT(DISTINCT user_id)
		FROM events
		WHERE org_id = ? AND project_id = ? AND ts >= ? AND ts <= ?
		GROUP BY event_name
		ORDER BY COUNT(*) DESC, event_name ASC`,
		tenant.OrgID, tenant.ProjectID, start.UTC(), end.UTC())
	if err != nil {
		return nil, 0, 0, fmt.Errorf("event summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		items       []models.EventSummaryItem
		totalEvents int64
	)
	for rows.Next() {
		var item models.EventSummaryItem
		if err := rows.Scan(&item.EventName, &item.Count, &item.UniqueUsers); err != nil {
			return nil, 0, 0, fmt.Errorf("scan summary row: %w", err)
		}
		totalEvents += item.Count
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	var totalUnique int64
	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id)
		FROM events
		WHERE org_id = ? AND project_id = ? AND ts >= ? AND ts <= ?`,
		tenant.OrgID, tenant.ProjectID, start.UTC(), end.UTC()).Scan(&totalUnique)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("summary distinct users: %w", err)
	}

	return items, totalEvents, totalUnique, nil
}

// UserSummary returns one user's aggregate activity: total events, first
// and last seen, and the top event names by count.
func (db *DB) UserSummary(ctx context.Context, tenant models.Tenant, userID string, topN int) (*models.UserSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	summary := &models.UserSummary{UserID: userID}
	var first, last sql.NullTime

	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(ts), MAX(ts)
		FROM events
		WHERE org_id = ? AND project_id = ? AND user_id = ?`,
		tenant.OrgID, tenant.ProjectID, userID).Scan(&summary.TotalEvents, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("user summary: %w", err)
	}
	if summary.TotalEvents == 0 {
		return nil, ErrNotFound
	}
	summary.FirstSeen = first.Time.UTC()
	summary.LastSeen = last.Time.UTC()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT event_name, COUNT(*), COUNT(DISTINCT user_id)
		FROM events
		WHERE org_id = ? AND project_id = ? AND user_id = ?
		GROUP BY event_name
		ORDER BY COUNT(*) DESC, event_name ASC
		LIMIT ?`,
		tenant.OrgID, tenant.ProjectID, userID, topN)
	if err != nil {
		return nil, fmt.Errorf("user top events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item models.EventSummaryItem
		if err := rows.Scan(&item.EventName, &item.Count, &item.UniqueUsers); err != nil {
			return nil, fmt.Errorf("scan top event: %w", err)
		}
		summary.TopEvents = append(summary.TopEvents, item)
	}
	return summary, rows.Err()
}

// EventNames returns the distinct event names a tenant has recorded.
func (db *DB) EventNames(ctx context.Context, tenant models.Tenant) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT event_name
		FROM events
		WHERE org_id = ? AND project_id = ?
		ORDER BY event_name ASC`,
		tenant.OrgID, tenant.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("event names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan event name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
