// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package config provides centralized configuration for all Driftline
// components, loaded with Koanf v2 in three layers (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml)
//  3. Environment variables
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Queue     QueueConfig     `koanf:"queue"`
	Ingest    IngestConfig    `koanf:"ingest"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Auth      AuthConfig      `koanf:"auth"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// AuthConfig holds API key bootstrap settings.
//
// When BootstrapOrg is set and no API keys exist yet, startup mints one
// admin key for (BootstrapOrg, BootstrapProject) and logs its secret once.
// Leave empty in deployments provisioned another way.
//
// Environment variables: BOOTSTRAP_ORG, BOOTSTRAP_PROJECT.
type AuthConfig struct {
	BootstrapOrg     string `koanf:"bootstrap_org"`
	BootstrapProject string `koanf:"bootstrap_project"`
}

// ServerConfig holds HTTP server settings.
//
// Environment variables: PORT, HOST, API_PREFIX, ENVIRONMENT, CORS_ORIGIN,
// SERVER_TIMEOUT, SHUTDOWN_TIMEOUT.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	APIPrefix       string        `koanf:"api_prefix"`
	Environment     string        `koanf:"environment"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed browser origins. Comma-separated in env.
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB event store settings.
//
// Environment variables: DATABASE_PATH, DATABASE_MAX_MEMORY, DATABASE_THREADS.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty or ":memory:" runs in-memory.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// CacheConfig holds KV cache settings.
//
// TTLs are expressed in whole seconds because they arrive from the
// environment as bare integers (CACHE_TTL, QUERY_CACHE_TTL).
type CacheConfig struct {
	// Path is the BadgerDB directory. Empty selects the in-memory store.
	Path string `koanf:"path"`

	// DefaultTTLSeconds applies to counters and generic entries (CACHE_TTL).
	DefaultTTLSeconds int `koanf:"default_ttl_seconds"`

	// QueryTTLSeconds applies to cached analytics results (QUERY_CACHE_TTL).
	QueryTTLSeconds int `koanf:"query_ttl_seconds"`

	// UserQueryTTLSeconds applies to user-specific query results.
	UserQueryTTLSeconds int `koanf:"user_query_ttl_seconds"`

	// DedupTTLHours is the lifetime of deduplication markers.
	DedupTTLHours int `koanf:"dedup_ttl_hours"`
}

// DefaultTTL returns the general cache TTL as a duration.
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// QueryTTL returns the analytics result TTL as a duration.
func (c CacheConfig) QueryTTL() time.Duration {
	return time.Duration(c.QueryTTLSeconds) * time.Second
}

// UserQueryTTL returns the user-specific result TTL as a duration.
func (c CacheConfig) UserQueryTTL() time.Duration {
	return time.Duration(c.UserQueryTTLSeconds) * time.Second
}

// DedupTTL returns the dedup marker TTL as a duration.
func (c CacheConfig) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLHours) * time.Hour
}

// QueueConfig holds durable job queue settings (Watermill + NATS JetStream).
//
// Environment variables: NATS_EMBEDDED, NATS_URL, NATS_STORE_DIR,
// EVENT_WORKER_CONCURRENCY.
type QueueConfig struct {
	// Embedded runs an in-process NATS server with JetStream file storage.
	Embedded bool   `koanf:"embedded"`
	URL      string `koanf:"url"`
	StoreDir string `koanf:"store_dir"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`

	StreamName  string `koanf:"stream_name"`
	BatchTopic  string `koanf:"batch_topic"`
	PoisonTopic string `koanf:"poison_topic"`

	// Stream retention bounds the durable backlog.
	MaxMsgs      int64         `koanf:"max_msgs"`
	MaxAge       time.Duration `koanf:"max_age"`
	MaxBytes     int64         `koanf:"max_bytes"`
	MaxPoisoned  int64         `koanf:"max_poisoned"`
	DurableName  string        `koanf:"durable_name"`
	QueueGroup   string        `koanf:"queue_group"`
	CloseTimeout time.Duration `koanf:"close_timeout"`

	// WorkerConcurrency is the number of parallel batch consumers.
	WorkerConcurrency int `koanf:"worker_concurrency"`

	// Retry policy for failed batch jobs.
	MaxRetries           int           `koanf:"max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	RetryMultiplier      float64       `koanf:"retry_multiplier"`
}

// IngestConfig holds ingestion pipeline settings.
//
// Environment variables: EVENT_BATCH_SIZE, EVENT_BUFFER_TIMEOUT_MS.
type IngestConfig struct {
	// BatchSize is the per-tenant buffer size that triggers a synchronous flush.
	BatchSize int `koanf:"batch_size"`

	// BufferTimeoutMS is the maximum buffer age before the sweeper flushes it.
	BufferTimeoutMS int `koanf:"buffer_timeout_ms"`

	// SweepIntervalMS is how often the sweeper scans for aged buffers.
	// Zero derives it from BufferTimeoutMS.
	SweepIntervalMS int `koanf:"sweep_interval_ms"`
}

// BufferTimeout returns the buffer age threshold as a duration.
func (c IngestConfig) BufferTimeout() time.Duration {
	return time.Duration(c.BufferTimeoutMS) * time.Millisecond
}

// SweepInterval returns the sweeper period, derived from the buffer timeout
// when unset.
func (c IngestConfig) SweepInterval() time.Duration {
	if c.SweepIntervalMS > 0 {
		return time.Duration(c.SweepIntervalMS) * time.Millisecond
	}
	interval := c.BufferTimeout() / 5
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return interval
}

// RateLimitConfig holds the per-route-class quota tiers. Each tier is an
// expiring counter in the KV cache keyed by API key (or client IP when
// anonymous).
//
// Environment variables: RATE_LIMIT_WINDOW_MS, RATE_LIMIT_MAX_REQUESTS,
// RATE_LIMIT_DISABLED.
type RateLimitConfig struct {
	Disabled bool `koanf:"disabled"`

	// General tier (all routes without a more specific tier).
	WindowMS    int `koanf:"window_ms"`
	MaxRequests int `koanf:"max_requests"`

	// Event ingestion tier.
	IngestWindowMS    int `koanf:"ingest_window_ms"`
	IngestMaxRequests int `koanf:"ingest_max_requests"`

	// Analytics query tier.
	AnalyticsWindowMS    int `koanf:"analytics_window_ms"`
	AnalyticsMaxRequests int `koanf:"analytics_max_requests"`

	// Admin tier (API key management).
	AdminWindowMS    int `koanf:"admin_window_ms"`
	AdminMaxRequests int `koanf:"admin_max_requests"`
}

// Window returns the general tier window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

// IngestWindow returns the ingestion tier window as a duration.
func (c RateLimitConfig) IngestWindow() time.Duration {
	return time.Duration(c.IngestWindowMS) * time.Millisecond
}

// AnalyticsWindow returns the analytics tier window as a duration.
func (c RateLimitConfig) AnalyticsWindow() time.Duration {
	return time.Duration(c.AnalyticsWindowMS) * time.Millisecond
}

// AdminWindow returns the admin tier window as a duration.
func (c RateLimitConfig) AdminWindow() time.Duration {
	return time.Duration(c.AdminWindowMS) * time.Millisecond
}

// LoggingConfig holds log output settings.
//
// Environment variables: LOG_LEVEL, LOG_FORMAT, LOG_CALLER.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			APIPrefix:       "/api/v1",
			Environment:     "development",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{},
		},
		Database: DatabaseConfig{
			Path:      "/data/driftline.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Cache: CacheConfig{
			Path:                "/data/cache",
			DefaultTTLSeconds:   3600,
			QueryTTLSeconds:     1800,
			UserQueryTTLSeconds: 300,
			DedupTTLHours:       24,
		},
		Queue: QueueConfig{
			Embedded:             true,
			URL:                  "nats://127.0.0.1:4222",
			StoreDir:             "/data/nats/jetstream",
			Host:                 "127.0.0.1",
			Port:                 4222,
			StreamName:           "DRIFTLINE",
			BatchTopic:           "events.batch",
			PoisonTopic:          "events.poison",
			MaxMsgs:              100,
			MaxPoisoned:          50,
			MaxAge:               7 * 24 * time.Hour,
			MaxBytes:             1 << 30, // 1GB
			DurableName:          "event-writer",
			QueueGroup:           "writers",
			CloseTimeout:         30 * time.Second,
			WorkerConcurrency:    4,
			MaxRetries:           3,
			RetryInitialInterval: 2 * time.Second,
			RetryMaxInterval:     time.Minute,
			RetryMultiplier:      2.0,
		},
		Ingest: IngestConfig{
			BatchSize:       1000,
			BufferTimeoutMS: 5000,
		},
		RateLimit: RateLimitConfig{
			Disabled:             false,
			WindowMS:             15 * 60 * 1000,
			MaxRequests:          100,
			IngestWindowMS:       60 * 1000,
			IngestMaxRequests:    10,
			AnalyticsWindowMS:    5 * 60 * 1000,
			AnalyticsMaxRequests: 2000,
			AdminWindowMS:        10 * 60 * 1000,
			AdminMaxRequests:     200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
