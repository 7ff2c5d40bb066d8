// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/models"
)

// Retention computes cohort retention: the cohort is every user whose first
// occurrence of cohortEvent falls in [start, end]; day d then counts the
// distinct cohort members active during the UTC calendar day start+d.
//
// Defaults: end = now, start = end - 2*days. days must be in [1, 365].
func (e *Engine) Retention(ctx context.Context, tenant models.Tenant, cohortEvent string, days int, start, end time.Time) (*models.RetentionAnalytics, error) {
	if days < models.MinRetentionDays || days > models.MaxRetentionDays {
		return nil, fmt.Errorf("days %d outside [%d, %d]", days, models.MinRetentionDays, models.MaxRetentionDays)
	}

	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -2*days)
	}
	start, end = start.UTC(), end.UTC()

	key := buildKey(cache.NSRetention, tenant, map[string]string{
		"cohort": cohortEvent,
		"days":   strconv.Itoa(days),
		"start":  start.Format(time.RFC3339),
		"end":    end.Format(time.RFC3339),
	})
	var cached models.RetentionAnalytics
	if e.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	cohort, err := e.store.FirstOccurrences(ctx, tenant, cohortEvent, nil, start, end)
	if err != nil {
		return nil, fmt.Errorf("retention cohort: %w", err)
	}

	result := &models.RetentionAnalytics{
		CohortEvent:   cohortEvent,
		CohortSize:    len(cohort),
		Days:          days,
		StartDate:     start,
		EndDate:       end,
		RetentionData: make([]models.RetentionDay, 0, days),
	}

	day0 := start.Truncate(24 * time.Hour)
	for d := 1; d <= days; d++ {
		dayStart := day0.AddDate(0, 0, d)
		dayEnd := dayStart.AddDate(0, 0, 1)

		retained := 0
		if len(cohort) > 0 {
			active, err := e.store.DistinctActiveUsers(ctx, tenant, dayStart, dayEnd)
			if err != nil {
				return nil, fmt.Errorf("retention day %d: %w", d, err)
			}
			for _, user := range active {
				if _, member := cohort[user]; member {
					retained++
				}
			}
		}

		rate := 0.0
		if len(cohort) > 0 {
			rate = round2(100 * float64(retained) / float64(len(cohort)))
		}
		result.RetentionData = append(result.RetentionData, models.RetentionDay{
			Day:           d,
			RetainedUsers: retained,
			RetentionRate: rate,
		})
	}

	e.save(ctx, key, result, e.queryTTL)
	return result, nil
}
