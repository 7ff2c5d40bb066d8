// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package cache provides the KV cache used for deduplication markers,
// realtime counters, rate-limit windows, and pre-computed analytics
// results.
//
// Two implementations exist: BadgerStore (durable, production) and
// MemoryStore (tests, or when no cache path is configured). Callers treat
// every cache error as non-fatal: dedup fails open, analytics falls back to
// direct computation, the rate limiter allows the request, and the realtime
// counter reads as zero.
package cache

import (
	"context"
	"strings"
	"time"
)

// Key namespaces. Full keys are built with Key(), e.g.
// Key(NSDedup, orgID, projectID, fingerprint).
const (
	NSDedup        = "dedup"
	NSEvents       = "events"
	NSRateLimit    = "rate_limit"
	NSFunnel       = "funnel"
	NSRetention    = "retention"
	NSMetrics      = "metrics"
	NSUserJourney  = "user_journey"
	NSEventSummary = "event_summary"
)

// Key joins key parts with the ":" separator.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Store is the KV cache contract: string values, integer counters, per-key
// TTLs. A zero ttl means the entry does not expire.
type Store interface {
	// Get returns the value and whether the key exists and is unexpired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// IncrBy atomically adds delta to an integer counter (starting from 0
	// when absent), applies the given TTL on every write, and returns the
	// new value.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// GetInt64 returns a counter's value, or 0 when the key is absent.
	GetInt64(ctx context.Context, key string) (int64, error)

	// Close releases the underlying resources.
	Close() error
}
