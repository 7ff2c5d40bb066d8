// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would make the server
// misbehave at runtime. It is called by Load() after all layers are merged.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range [1, 65535]", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		problems = append(problems, fmt.Sprintf("server.api_prefix %q must start with /", c.Server.APIPrefix))
	}
	if c.Server.Timeout <= 0 {
		problems = append(problems, "server.timeout must be positive")
	}

	if c.Ingest.BatchSize < 1 {
		problems = append(problems, fmt.Sprintf("ingest.batch_size %d must be at least 1", c.Ingest.BatchSize))
	}
	if c.Ingest.BufferTimeoutMS < 1 {
		problems = append(problems, "ingest.buffer_timeout_ms must be positive")
	}

	if c.Cache.QueryTTLSeconds < 0 || c.Cache.DefaultTTLSeconds < 0 || c.Cache.UserQueryTTLSeconds < 0 {
		problems = append(problems, "cache TTLs must not be negative")
	}
	if c.Cache.DedupTTLHours < 1 {
		problems = append(problems, "cache.dedup_ttl_hours must be at least 1")
	}

	if c.Queue.WorkerConcurrency < 1 {
		problems = append(problems, "queue.worker_concurrency must be at least 1")
	}
	if c.Queue.MaxRetries < 0 {
		problems = append(problems, "queue.max_retries must not be negative")
	}
	if c.Queue.StreamName == "" || c.Queue.BatchTopic == "" {
		problems = append(problems, "queue.stream_name and queue.batch_topic are required")
	}
	if !c.Queue.Embedded && c.Queue.URL == "" {
		problems = append(problems, "queue.url is required when the embedded broker is disabled")
	}

	if !c.RateLimit.Disabled {
		if c.RateLimit.WindowMS < 1 || c.RateLimit.MaxRequests < 1 {
			problems = append(problems, "ratelimit general tier requires positive window and max")
		}
		if c.RateLimit.IngestWindowMS < 1 || c.RateLimit.IngestMaxRequests < 1 {
			problems = append(problems, "ratelimit ingest tier requires positive window and max")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
