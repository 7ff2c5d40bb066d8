// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"context"
	"time"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/store"
)

// journeyLimit bounds a journey response; longer histories page through
// UserEvents instead.
const journeyLimit = 1000

// userTopEvents is how many event names a user summary reports.
const userTopEvents = 5

// Journey returns one user's chronologically ordered events within
// [start, end]. Returns store.ErrNotFound when the user has no events in
// range. Cached with the short user-specific TTL.
func (e *Engine) Journey(ctx context.Context, tenant models.Tenant, userID string, start, end time.Time) (*models.UserJourney, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	start, end = start.UTC(), end.UTC()

	key := buildKey(cache.NSUserJourney, tenant, map[string]string{
		"user":  userID,
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	})
	var cached models.UserJourney
	if e.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	events, err := e.store.QueryEvents(ctx, tenant, store.EventFilter{
		UserID:    userID,
		Start:     start,
		End:       end,
		Ascending: true,
		Limit:     journeyLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, store.ErrNotFound
	}

	result := &models.UserJourney{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Total:     len(events),
		Events:    events,
	}

	e.save(ctx, key, result, e.userTTL)
	return result, nil
}

// UserEvents returns one page of a user's events, newest first, with the
// total count for pagination.
func (e *Engine) UserEvents(ctx context.Context, tenant models.Tenant, userID string, filter store.EventFilter) ([]models.Event, int64, error) {
	filter.UserID = userID

	total, err := e.store.CountEvents(ctx, tenant, filter)
	if err != nil {
		return nil, 0, err
	}
	events, err := e.store.QueryEvents(ctx, tenant, filter)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// UserSummary aggregates one user's activity, cached with the short
// user-specific TTL. Returns store.ErrNotFound for unknown users.
func (e *Engine) UserSummary(ctx context.Context, tenant models.Tenant, userID string) (*models.UserSummary, error) {
	key := buildKey(cache.NSUserJourney, tenant, map[string]string{
		"user": userID,
		"kind": "summary",
	})
	var cached models.UserSummary
	if e.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	summary, err := e.store.UserSummary(ctx, tenant, userID, userTopEvents)
	if err != nil {
		return nil, err
	}

	e.save(ctx, key, summary, e.userTTL)
	return summary, nil
}
