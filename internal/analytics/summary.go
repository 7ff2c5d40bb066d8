// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"context"
	"time"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/models"
)

// Summary aggregates all event names within [start, end], descending by
// count. TotalUniqueUsers counts distinct users across all names.
func (e *Engine) Summary(ctx context.Context, tenant models.Tenant, start, end time.Time) (*models.EventsSummary, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	start, end = start.UTC(), end.UTC()

	key := buildKey(cache.NSEventSummary, tenant, map[string]string{
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	})
	var cached models.EventsSummary
	if e.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	items, totalEvents, totalUnique, err := e.store.EventSummary(ctx, tenant, start, end)
	if err != nil {
		return nil, err
	}

	result := &models.EventsSummary{
		StartDate:        start,
		EndDate:          end,
		TotalEvents:      totalEvents,
		TotalUniqueUsers: totalUnique,
		Events:           items,
	}
	if result.Events == nil {
		result.Events = []models.EventSummaryItem{}
	}

	e.save(ctx, key, result, e.queryTTL)
	return result, nil
}

// RealtimeCount returns the tenant's live persisted-event counter from the
// KV cache. Eventually consistent with very recent writes. A cache read
// error is logged and reported as a zero count rather than a failure.
func (e *Engine) RealtimeCount(ctx context.Context, tenant models.Tenant) (*models.RealtimeStats, error) {
	key := cache.Key(cache.NSEvents, tenant.OrgID, tenant.ProjectID, "count")
	count, err := e.cache.GetInt64(ctx, key)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("key", key).Msg("realtime counter read degraded")
		count = 0
	}
	return &models.RealtimeStats{
		TotalEvents: count,
		Timestamp:   time.Now().UTC(),
	}, nil
}
