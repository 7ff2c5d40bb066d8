// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Server.APIPrefix != "/api/v1" {
		t.Errorf("default prefix = %q", cfg.Server.APIPrefix)
	}
	if cfg.Ingest.BatchSize != 1000 {
		t.Errorf("default batch size = %d", cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.BufferTimeout() != 5*time.Second {
		t.Errorf("default buffer timeout = %v", cfg.Ingest.BufferTimeout())
	}
	if cfg.Cache.QueryTTL() != 30*time.Minute {
		t.Errorf("default query TTL = %v", cfg.Cache.QueryTTL())
	}
	if cfg.Cache.DedupTTL() != 24*time.Hour {
		t.Errorf("default dedup TTL = %v", cfg.Cache.DedupTTL())
	}
	if cfg.Queue.MaxRetries != 3 || cfg.Queue.RetryInitialInterval != 2*time.Second {
		t.Errorf("default retry policy = %d/%v", cfg.Queue.MaxRetries, cfg.Queue.RetryInitialInterval)
	}
	if cfg.RateLimit.IngestMaxRequests != 10 || cfg.RateLimit.IngestWindow() != time.Minute {
		t.Errorf("default ingest tier = %d/%v", cfg.RateLimit.IngestMaxRequests, cfg.RateLimit.IngestWindow())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("EVENT_BATCH_SIZE", "250")
	t.Setenv("EVENT_BUFFER_TIMEOUT_MS", "1500")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "7")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("PORT override ignored: %d", cfg.Server.Port)
	}
	if cfg.Ingest.BatchSize != 250 {
		t.Errorf("EVENT_BATCH_SIZE override ignored: %d", cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.BufferTimeout() != 1500*time.Millisecond {
		t.Errorf("EVENT_BUFFER_TIMEOUT_MS override ignored: %v", cfg.Ingest.BufferTimeout())
	}
	if cfg.RateLimit.MaxRequests != 7 {
		t.Errorf("RATE_LIMIT_MAX_REQUESTS override ignored: %d", cfg.RateLimit.MaxRequests)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example" {
		t.Errorf("CORS_ORIGIN not split: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("LOG_LEVEL override ignored: %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"bad prefix", func(c *Config) { c.Server.APIPrefix = "api" }},
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }},
		{"zero buffer timeout", func(c *Config) { c.Ingest.BufferTimeoutMS = 0 }},
		{"zero workers", func(c *Config) { c.Queue.WorkerConcurrency = 0 }},
		{"missing topic", func(c *Config) { c.Queue.BatchTopic = "" }},
		{"external broker without url", func(c *Config) { c.Queue.Embedded = false; c.Queue.URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestSweepIntervalDerivation(t *testing.T) {
	cfg := IngestConfig{BufferTimeoutMS: 5000}
	if cfg.SweepInterval() != time.Second {
		t.Errorf("derived interval = %v, want 1s", cfg.SweepInterval())
	}

	cfg = IngestConfig{BufferTimeoutMS: 100}
	if cfg.SweepInterval() != 100*time.Millisecond {
		t.Errorf("floor = %v, want 100ms", cfg.SweepInterval())
	}

	cfg = IngestConfig{BufferTimeoutMS: 5000, SweepIntervalMS: 333}
	if cfg.SweepInterval() != 333*time.Millisecond {
		t.Errorf("explicit interval ignored: %v", cfg.SweepInterval())
	}
}
