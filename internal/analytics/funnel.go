// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/models"
)

// Funnel computes conversion through a stored funnel over [start, end].
// Membership is ordered: a user counts for step i only after qualifying for
// step i-1, and a nonzero step timeWindow additionally requires step i to
// occur within that many seconds of the user's step i-1 instant. Step
// counts are therefore monotone non-increasing.
func (e *Engine) Funnel(ctx context.Context, tenant models.Tenant, funnelID string, start, end time.Time) (*models.FunnelAnalytics, error) {
	funnel, err := e.store.GetFunnel(ctx, tenant, funnelID)
	if err != nil {
		return nil, err
	}

	key := buildKey(cache.NSFunnel, tenant, map[string]string{
		"id":    funnelID,
		"start": start.UTC().Format(time.RFC3339),
		"end":   end.UTC().Format(time.RFC3339),
	})
	var cached models.FunnelAnalytics
	if e.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	// Per-step occurrence sequences, fetched once each.
	occurrences := make([]map[string][]time.Time, len(funnel.Steps))
	for i, step := range funnel.Steps {
		occ, err := e.store.AllOccurrences(ctx, tenant, step.EventName, step.Filters, start, end)
		if err != nil {
			return nil, fmt.Errorf("funnel step %d: %w", i+1, err)
		}
		occurrences[i] = occ
	}

	counts := reduceFunnel(funnel.Steps, occurrences)

	result := &models.FunnelAnalytics{
		FunnelID:   funnel.ID,
		FunnelName: funnel.Name,
		StartDate:  start.UTC(),
		EndDate:    end.UTC(),
		Steps:      make([]models.FunnelStepResult, len(funnel.Steps)),
	}
	if len(counts) > 0 {
		result.TotalUsers = counts[0]
	}

	for i, step := range funnel.Steps {
		stepResult := models.FunnelStepResult{
			EventName: step.EventName,
			Count:     counts[i],
		}
		switch {
		case i == 0:
			stepResult.ConversionRate = 100
		case counts[i-1] > 0:
			stepResult.ConversionRate = round2(100 * float64(counts[i]) / float64(counts[i-1]))
		}
		stepResult.DropOffRate = round2(100 - stepResult.ConversionRate)
		result.Steps[i] = stepResult
	}

	e.save(ctx, key, result, e.queryTTL)
	return result, nil
}

// reduceFunnel walks each user's occurrence sequences through the steps in
// order and returns the per-step member counts.
//
// For each user the earliest qualifying instant of step i becomes the
// anchor for step i+1: the user's next occurrence at or after the anchor,
// and (when the step's window is nonzero) within window seconds of it.
// When a user has multiple occurrences of a step, the earliest qualifying
// one counts.
func reduceFunnel(steps []models.FunnelStep, occurrences []map[string][]time.Time) []int {
	counts := make([]int, len(steps))
	if len(steps) == 0 {
		return counts
	}

	for user, firstSteps := range occurrences[0] {
		if len(firstSteps) == 0 {
			continue
		}
		counts[0]++

		anchor := firstSteps[0]
		for i := 1; i < len(steps); i++ {
			userOcc := occurrences[i][user]
			next, ok := earliestAtOrAfter(userOcc, anchor)
			if !ok {
				break
			}
			if window := steps[i].TimeWindowSeconds; window > 0 {
				deadline := anchor.Add(time.Duration(window) * time.Second)
				if next.After(deadline) {
					break
				}
			}
			counts[i]++
			anchor = next
		}
	}
	return counts
}

// earliestAtOrAfter returns the first timestamp in the ascending slice that
// is not before anchor.
func earliestAtOrAfter(sorted []time.Time, anchor time.Time) (time.Time, bool) {
	idx := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].Before(anchor)
	})
	if idx == len(sorted) {
		return time.Time{}, false
	}
	return sorted[idx], true
}

// round2 rounds to two decimals, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
