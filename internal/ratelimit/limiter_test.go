// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/driftline/driftline/internal/cache"
)

func testLimiter(t *testing.T) (*Limiter, *time.Time) {
	t.Helper()
	kv := cache.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	kv.SetNow(func() time.Time { return now })

	limiter := NewLimiter(kv)
	limiter.SetNow(func() time.Time { return now })
	return limiter, &now
}

func TestAllowUntilQuota(t *testing.T) {
	limiter, _ := testLimiter(t)
	ctx := context.Background()

	// Ingestion tier: 10 per minute. The 11th is rejected with retryAfter.
	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow(ctx, ClassIngest, "key-1", time.Minute, 10)
		if !allowed {
			t.Fatalf("request %d rejected under quota", i+1)
		}
	}

	allowed, retryAfter := limiter.Allow(ctx, ClassIngest, "key-1", time.Minute, 10)
	if allowed {
		t.Fatal("11th request must be rejected")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %d, want > 0", retryAfter)
	}
}

func TestQuotaIsPerCaller(t *testing.T) {
	limiter, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.Allow(ctx, ClassGeneral, "key-a", time.Minute, 5)
	}
	if allowed, _ := limiter.Allow(ctx, ClassGeneral, "key-a", time.Minute, 5); allowed {
		t.Fatal("key-a should be exhausted")
	}
	if allowed, _ := limiter.Allow(ctx, ClassGeneral, "key-b", time.Minute, 5); !allowed {
		t.Error("key-b must have its own window")
	}
}

func TestQuotaIsPerClass(t *testing.T) {
	limiter, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Allow(ctx, ClassIngest, "key-1", time.Minute, 3)
	}
	if allowed, _ := limiter.Allow(ctx, ClassIngest, "key-1", time.Minute, 3); allowed {
		t.Fatal("ingest class should be exhausted")
	}
	if allowed, _ := limiter.Allow(ctx, ClassAnalytics, "key-1", time.Minute, 3); !allowed {
		t.Error("analytics class must not share the ingest window")
	}
}

func TestWindowRollover(t *testing.T) {
	limiter, now := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		limiter.Allow(ctx, ClassGeneral, "key-1", time.Minute, 2)
	}
	if allowed, _ := limiter.Allow(ctx, ClassGeneral, "key-1", time.Minute, 2); allowed {
		t.Fatal("quota should be exhausted")
	}

	*now = now.Add(61 * time.Second)
	if allowed, _ := limiter.Allow(ctx, ClassGeneral, "key-1", time.Minute, 2); !allowed {
		t.Error("new window must reset the counter")
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	limiter := NewLimiter(&downStore{})
	allowed, _ := limiter.Allow(context.Background(), ClassGeneral, "key-1", time.Minute, 1)
	if !allowed {
		t.Error("cache unavailability must degrade to allow")
	}
}

// downStore errors on every operation.
type downStore struct{}

func (d *downStore) Get(context.Context, string) (string, bool, error) {
	return "", false, context.DeadlineExceeded
}
func (d *downStore) Set(context.Context, string, string, time.Duration) error {
	return context.DeadlineExceeded
}
func (d *downStore) Delete(context.Context, string) error { return context.DeadlineExceeded }
func (d *downStore) IncrBy(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, context.DeadlineExceeded
}
func (d *downStore) GetInt64(context.Context, string) (int64, error) {
	return 0, context.DeadlineExceeded
}
func (d *downStore) Close() error { return nil }
