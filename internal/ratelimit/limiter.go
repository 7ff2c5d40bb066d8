// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package ratelimit enforces per-route-class quotas with expiring counters
// in the KV cache, keyed by API key (or client IP when anonymous). Windows
// are fixed: the counter key embeds the window start, so entries roll over
// naturally as their TTL expires. Because the counters live in the durable
// cache, limits survive restarts and are shared with the cache's fail-open
// policy: when the cache is unavailable, requests are allowed with a
// warning.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/metrics"
)

// Limiter counts requests per (class, caller, window).
type Limiter struct {
	cache cache.Store

	// now is injectable for window tests.
	now func() time.Time
}

// NewLimiter creates a limiter over the KV cache.
func NewLimiter(store cache.Store) *Limiter {
	return &Limiter{cache: store, now: time.Now}
}

// SetNow injects a clock for tests.
func (l *Limiter) SetNow(now func() time.Time) {
	l.now = now
}

// Allow records one request for the caller under the given class and
// reports whether it fits the quota. When the quota is exceeded, the
// second return is the seconds until the window resets.
func (l *Limiter) Allow(ctx context.Context, class, caller string, window time.Duration, max int) (bool, int) {
	now := l.now()
	windowStart := now.Truncate(window)
	key := cache.Key(cache.NSRateLimit, class, caller,
		strconv.FormatInt(windowStart.Unix(), 10))

	count, err := l.cache.IncrBy(ctx, key, 1, window)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("class", class).
			Msg("rate limiter degraded, allowing request")
		return true, 0
	}

	if count > int64(max) {
		metrics.RateLimited.WithLabelValues(class).Inc()
		retryAfter := int(windowStart.Add(window).Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter
	}
	return true, 0
}
