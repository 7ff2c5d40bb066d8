// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreBasicOperations(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if err := s.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatal(err)
	}

	value, found, err := s.Get(ctx, "k1")
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v, %v", value, found, err)
	}
	if value != "v1" {
		t.Errorf("value = %q, want v1", value)
	}

	if _, found, _ := s.Get(ctx, "missing"); found {
		t.Error("missing key reported as found")
	}

	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get(ctx, "k1"); found {
		t.Error("deleted key still present")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetNow(func() time.Time { return now })

	if err := s.Set(ctx, "short", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "forever", "v", 0); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)

	if _, found, _ := s.Get(ctx, "short"); found {
		t.Error("entry survived past its TTL")
	}
	if _, found, _ := s.Get(ctx, "forever"); !found {
		t.Error("zero-TTL entry must not expire")
	}
}

func TestMemoryStoreCounters(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.IncrBy(ctx, "counter", 1, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("IncrBy = %d, want %d", got, want)
		}
	}

	got, err := s.IncrBy(ctx, "counter", 10, time.Minute)
	if err != nil || got != 13 {
		t.Errorf("IncrBy(10) = %d, %v, want 13", got, err)
	}

	value, err := s.GetInt64(ctx, "counter")
	if err != nil || value != 13 {
		t.Errorf("GetInt64 = %d, %v, want 13", value, err)
	}
	if value, _ := s.GetInt64(ctx, "absent"); value != 0 {
		t.Errorf("absent counter = %d, want 0", value)
	}
}

func TestMemoryStoreConcurrentIncr(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.IncrBy(ctx, "hits", 1, time.Minute); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	total, _ := s.GetInt64(ctx, "hits")
	if total != workers*perWorker {
		t.Errorf("total = %d, want %d", total, workers*perWorker)
	}
}

func TestKeyBuilder(t *testing.T) {
	if got := Key(NSDedup, "acme", "web", "abc"); got != "dedup:acme:web:abc" {
		t.Errorf("Key() = %q", got)
	}
}
