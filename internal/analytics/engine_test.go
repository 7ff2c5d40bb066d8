// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/store"
)

// fakeStore satisfies Store with canned data and call counting.
type fakeStore struct {
	firstOccurrences map[string]time.Time
	activeByDay      map[string][]string // keyed by day start RFC3339
	summaryItems     []models.EventSummaryItem
	summaryTotal     int64
	summaryUnique    int64
	summaryCalls     int
}

func (f *fakeStore) GetFunnel(context.Context, models.Tenant, string) (*models.Funnel, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) FirstOccurrences(context.Context, models.Tenant, string, *models.Predicate, time.Time, time.Time) (map[string]time.Time, error) {
	return f.firstOccurrences, nil
}

func (f *fakeStore) AllOccurrences(context.Context, models.Tenant, string, *models.Predicate, time.Time, time.Time) (map[string][]time.Time, error) {
	return nil, nil
}

func (f *fakeStore) DistinctActiveUsers(_ context.Context, _ models.Tenant, start, _ time.Time) ([]string, error) {
	return f.activeByDay[start.Format(time.RFC3339)], nil
}

func (f *fakeStore) MetricBuckets(context.Context, models.Tenant, string, string, *models.Predicate, time.Time, time.Time) ([]models.MetricsBucket, error) {
	return nil, nil
}

func (f *fakeStore) MetricTotals(context.Context, models.Tenant, string, *models.Predicate, time.Time, time.Time) (int64, int64, error) {
	return 0, 0, nil
}

func (f *fakeStore) EventSummary(context.Context, models.Tenant, time.Time, time.Time) ([]models.EventSummaryItem, int64, int64, error) {
	f.summaryCalls++
	return f.summaryItems, f.summaryTotal, f.summaryUnique, nil
}

func (f *fakeStore) UserSummary(context.Context, models.Tenant, string, int) (*models.UserSummary, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) QueryEvents(context.Context, models.Tenant, store.EventFilter) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeStore) CountEvents(context.Context, models.Tenant, store.EventFilter) (int64, error) {
	return 0, nil
}

func (f *fakeStore) EventNames(context.Context, models.Tenant) ([]string, error) {
	return nil, nil
}

func testEngine(f *fakeStore) *Engine {
	return New(f, cache.NewMemoryStore(), config.CacheConfig{
		QueryTTLSeconds:     1800,
		UserQueryTTLSeconds: 300,
		DedupTTLHours:       24,
	})
}

func day(d int) time.Time {
	return time.Date(2024, 3, 1+d, 0, 0, 0, 0, time.UTC)
}

func TestRetentionRates(t *testing.T) {
	// Cohort of three signs up on day 0; u1 returns on day 1, u1 and u2 on
	// day 2.
	fake := &fakeStore{
		firstOccurrences: map[string]time.Time{
			"u1": day(0), "u2": day(0), "u3": day(0),
		},
		activeByDay: map[string][]string{
			day(1).Format(time.RFC3339): {"u1"},
			day(2).Format(time.RFC3339): {"u1", "u2", "stranger"},
		},
	}
	engine := testEngine(fake)

	result, err := engine.Retention(context.Background(),
		models.Tenant{OrgID: "acme", ProjectID: "web"}, "signup", 2, day(0), day(2))
	if err != nil {
		t.Fatalf("Retention() error = %v", err)
	}

	if result.CohortSize != 3 {
		t.Errorf("cohort size = %d, want 3", result.CohortSize)
	}
	if len(result.RetentionData) != 2 {
		t.Fatalf("retention days = %d, want 2", len(result.RetentionData))
	}

	d1, d2 := result.RetentionData[0], result.RetentionData[1]
	if d1.RetainedUsers != 1 || d1.RetentionRate != 33.33 {
		t.Errorf("day 1 = %+v, want retained 1 rate 33.33", d1)
	}
	if d2.RetainedUsers != 2 || d2.RetentionRate != 66.67 {
		t.Errorf("day 2 = %+v, want retained 2 rate 66.67", d2)
	}

	for _, rd := range result.RetentionData {
		if rd.RetentionRate < 0 || rd.RetentionRate > 100 {
			t.Errorf("rate out of bounds: %+v", rd)
		}
		if rd.RetainedUsers > result.CohortSize {
			t.Errorf("retained exceeds cohort: %+v", rd)
		}
	}
}

func TestRetentionEmptyCohort(t *testing.T) {
	engine := testEngine(&fakeStore{firstOccurrences: map[string]time.Time{}})

	result, err := engine.Retention(context.Background(),
		models.Tenant{OrgID: "acme", ProjectID: "web"}, "signup", 3, day(0), day(3))
	if err != nil {
		t.Fatalf("Retention() error = %v", err)
	}
	for _, rd := range result.RetentionData {
		if rd.RetentionRate != 0 || rd.RetainedUsers != 0 {
			t.Errorf("empty cohort must yield zero rates, got %+v", rd)
		}
	}
}

func TestRetentionDayBounds(t *testing.T) {
	engine := testEngine(&fakeStore{})
	tenant := models.Tenant{OrgID: "acme", ProjectID: "web"}

	for _, days := range []int{0, -1, 366} {
		if _, err := engine.Retention(context.Background(), tenant, "signup", days, day(0), day(1)); err == nil {
			t.Errorf("days=%d must be rejected", days)
		}
	}
	if _, err := engine.Retention(context.Background(), tenant, "signup", 1, day(0), day(1)); err != nil {
		t.Errorf("days=1 must be accepted, got %v", err)
	}
	if _, err := engine.Retention(context.Background(), tenant, "signup", 365, day(0), day(1)); err != nil {
		t.Errorf("days=365 must be accepted, got %v", err)
	}
}

func TestSummaryCacheConsistency(t *testing.T) {
	fake := &fakeStore{
		summaryItems: []models.EventSummaryItem{
			{EventName: "page_view", Count: 3, UniqueUsers: 2},
		},
		summaryTotal:  3,
		summaryUnique: 2,
	}
	engine := testEngine(fake)
	tenant := models.Tenant{OrgID: "acme", ProjectID: "web"}

	first, err := engine.Summary(context.Background(), tenant, day(0), day(1))
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	second, err := engine.Summary(context.Background(), tenant, day(0), day(1))
	if err != nil {
		t.Fatalf("second Summary() error = %v", err)
	}

	if fake.summaryCalls != 1 {
		t.Errorf("store hit %d times, want 1 (second call cached)", fake.summaryCalls)
	}
	if first.TotalEvents != second.TotalEvents || first.TotalUniqueUsers != second.TotalUniqueUsers ||
		len(first.Events) != len(second.Events) {
		t.Errorf("cached result diverged: %+v vs %+v", first, second)
	}
}

func TestSummaryTenantKeysDoNotCollide(t *testing.T) {
	fake := &fakeStore{summaryTotal: 1}
	engine := testEngine(fake)

	if _, err := engine.Summary(context.Background(), models.Tenant{OrgID: "a", ProjectID: "p"}, day(0), day(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Summary(context.Background(), models.Tenant{OrgID: "b", ProjectID: "p"}, day(0), day(1)); err != nil {
		t.Fatal(err)
	}
	if fake.summaryCalls != 2 {
		t.Errorf("store hit %d times, want 2 (tenants must not share cache entries)", fake.summaryCalls)
	}
}
