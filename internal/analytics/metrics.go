// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/models"
)

// Metrics computes the time-bucketed series for one event name. Buckets are
// UTC (hour/day/ISO week/month), emitted ascending by bucket start. The
// range defaults to the last 30 days. The optional predicate narrows by
// event properties.
func (e *Engine) Metrics(ctx context.Context, tenant models.Tenant, eventName, interval string, pred *models.Predicate, start, end time.Time) (*models.EventMetrics, error) {
	if eventName == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if !models.ValidInterval(interval) {
		return nil, fmt.Errorf("interval %q must be one of hourly, daily, weekly, monthly", interval)
	}
	if pred != nil {
		if err := pred.Validate(); err != nil {
			return nil, fmt.Errorf("filters: %w", err)
		}
	}

	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	start, end = start.UTC(), end.UTC()

	params := map[string]string{
		"event":    eventName,
		"interval": interval,
		"start":    start.Format(time.RFC3339),
		"end":      end.Format(time.RFC3339),
	}
	if pred != nil {
		encoded, err := json.Marshal(pred)
		if err != nil {
			return nil, fmt.Errorf("filters: %w", err)
		}
		params["filters"] = string(encoded)
	}
	key := buildKey(cache.NSMetrics, tenant, params)

	var cached models.EventMetrics
	if e.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	series, err := e.store.MetricBuckets(ctx, tenant, eventName, interval, pred, start, end)
	if err != nil {
		return nil, err
	}
	totalCount, totalUnique, err := e.store.MetricTotals(ctx, tenant, eventName, pred, start, end)
	if err != nil {
		return nil, err
	}

	result := &models.EventMetrics{
		EventName:        eventName,
		Interval:         interval,
		StartDate:        start,
		EndDate:          end,
		TotalCount:       totalCount,
		TotalUniqueUsers: totalUnique,
		Series:           series,
	}

	e.save(ctx, key, result, e.queryTTL)
	return result, nil
}

// EventNames lists the distinct event names a tenant has recorded.
func (e *Engine) EventNames(ctx context.Context, tenant models.Tenant) ([]string, error) {
	return e.store.EventNames(ctx, tenant)
}
