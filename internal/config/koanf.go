// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/driftline/config.yaml",
	"/etc/driftline/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources: defaults, then an optional
// YAML file, then environment variables (highest priority). The result is
// validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps flat environment variable names onto koanf config paths.
// Variables not listed here are ignored, which keeps unrelated environment
// noise out of the configuration.
var envMappings = map[string]string{
	// Server
	"port":             "server.port",
	"host":             "server.host",
	"api_prefix":       "server.api_prefix",
	"environment":      "server.environment",
	"server_timeout":   "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"cors_origin":      "server.cors_origins",

	// Event store
	"database_path":       "database.path",
	"database_max_memory": "database.max_memory",
	"database_threads":    "database.threads",

	// KV cache
	"cache_path":      "cache.path",
	"cache_ttl":       "cache.default_ttl_seconds",
	"query_cache_ttl": "cache.query_ttl_seconds",
	"user_cache_ttl":  "cache.user_query_ttl_seconds",
	"dedup_ttl_hours": "cache.dedup_ttl_hours",

	// Queue broker
	"nats_embedded":            "queue.embedded",
	"nats_url":                 "queue.url",
	"nats_store_dir":           "queue.store_dir",
	"nats_host":                "queue.host",
	"nats_port":                "queue.port",
	"event_worker_concurrency": "queue.worker_concurrency",

	// Ingestion pipeline
	"event_batch_size":        "ingest.batch_size",
	"event_buffer_timeout_ms": "ingest.buffer_timeout_ms",
	"event_sweep_interval_ms": "ingest.sweep_interval_ms",

	// Rate limiter
	"rate_limit_disabled":            "ratelimit.disabled",
	"rate_limit_window_ms":           "ratelimit.window_ms",
	"rate_limit_max_requests":        "ratelimit.max_requests",
	"rate_limit_ingest_window_ms":    "ratelimit.ingest_window_ms",
	"rate_limit_ingest_max":          "ratelimit.ingest_max_requests",
	"rate_limit_analytics_window_ms": "ratelimit.analytics_window_ms",
	"rate_limit_analytics_max":       "ratelimit.analytics_max_requests",
	"rate_limit_admin_window_ms":     "ratelimit.admin_window_ms",
	"rate_limit_admin_max":           "ratelimit.admin_max_requests",

	// Bootstrap
	"bootstrap_org":     "auth.bootstrap_org",
	"bootstrap_project": "auth.bootstrap_project",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unknown variables map to "" and are dropped by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// sliceConfigPaths lists paths parsed as comma-separated slices when they
// arrive from the environment as plain strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated strings into slices for the
// known slice-valued paths.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}
