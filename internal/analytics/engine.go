// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package analytics implements the five query operators (funnel, retention,
// metrics, journey, summary) as a read-through cache over the event store.
//
// Every operator derives a deterministic cache key from its full parameter
// set, consults the KV cache, and on miss computes and stores the result.
// Cache failures in either direction are logged and degrade to direct
// computation; they never fail the request.
package analytics

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/metrics"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/store"
)

// Store is the slice of the event store the engine reads from.
type Store interface {
	GetFunnel(ctx context.Context, tenant models.Tenant, id string) (*models.Funnel, error)
	FirstOccurrences(ctx context.Context, tenant models.Tenant, eventName string, pred *models.Predicate, start, end time.Time) (map[string]time.Time, error)
	AllOccurrences(ctx context.Context, tenant models.Tenant, eventName string, pred *models.Predicate, start, end time.Time) (map[string][]time.Time, error)
	DistinctActiveUsers(ctx context.Context, tenant models.Tenant, start, end time.Time) ([]string, error)
	MetricBuckets(ctx context.Context, tenant models.Tenant, eventName, interval string, pred *models.Predicate, start, end time.Time) ([]models.MetricsBucket, error)
	MetricTotals(ctx context.Context, tenant models.Tenant, eventName string, pred *models.Predicate, start, end time.Time) (int64, int64, error)
	EventSummary(ctx context.Context, tenant models.Tenant, start, end time.Time) ([]models.EventSummaryItem, int64, int64, error)
	UserSummary(ctx context.Context, tenant models.Tenant, userID string, topN int) (*models.UserSummary, error)
	QueryEvents(ctx context.Context, tenant models.Tenant, filter store.EventFilter) ([]models.Event, error)
	CountEvents(ctx context.Context, tenant models.Tenant, filter store.EventFilter) (int64, error)
	EventNames(ctx context.Context, tenant models.Tenant) ([]string, error)
}

// Engine executes analytics queries with cache-aside semantics.
type Engine struct {
	store    Store
	cache    cache.Store
	queryTTL time.Duration
	userTTL  time.Duration
}

// New constructs the engine. queryTTL applies to tenant-wide results,
// userTTL to user-specific ones.
func New(db Store, kv cache.Store, cfg config.CacheConfig) *Engine {
	return &Engine{
		store:    db,
		cache:    kv,
		queryTTL: cfg.QueryTTL(),
		userTTL:  cfg.UserQueryTTL(),
	}
}

// lookup attempts to decode a cached result into out. Returns true only on
// a clean hit; errors degrade to a miss.
func (e *Engine) lookup(ctx context.Context, key string, out any) bool {
	raw, found, err := e.cache.Get(ctx, key)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("key", key).Msg("result cache read degraded")
		return false
	}
	if !found {
		metrics.QueryCacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("key", key).Msg("undecodable cached result, recomputing")
		metrics.QueryCacheMisses.Inc()
		return false
	}
	metrics.QueryCacheHits.Inc()
	return true
}

// save writes a computed result to the cache. Failures are logged only.
func (e *Engine) save(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("key", key).Msg("result not serializable, skipping cache")
		return
	}
	if err := e.cache.Set(ctx, key, string(raw), ttl); err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("key", key).Msg("result cache write degraded")
	}
}
