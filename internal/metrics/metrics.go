// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package metrics defines the Prometheus collectors for ingestion, query,
// cache, queue, and HTTP observability. Collectors are registered on the
// default registry via promauto and exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Ingestion pipeline
	EventsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_accepted_total",
			Help: "Events that passed validation and dedup",
		},
	)

	EventsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_duplicate_total",
			Help: "Events discarded as duplicates",
		},
	)

	EventsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_skipped_total",
			Help: "Events skipped by validation",
		},
	)

	EventsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_persisted_total",
			Help: "Events persisted by the queue worker",
		},
	)

	BufferFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_buffer_flushes_total",
			Help: "Buffer flushes by trigger (size, age, shutdown)",
		},
		[]string{"trigger"},
	)

	BufferedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_buffered_events",
			Help: "Events currently held in tenant buffers",
		},
	)

	// Queue
	JobsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_jobs_failed_total",
			Help: "Batch jobs that returned an error (before retry)",
		},
	)

	// Analytics result cache
	QueryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_cache_hits_total",
			Help: "Analytics queries served from the result cache",
		},
	)

	QueryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_cache_misses_total",
			Help: "Analytics queries computed directly",
		},
	)

	// Realtime bus
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	WebSocketDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_dropped_messages_total",
			Help: "Messages dropped on slow subscriber send buffers",
		},
	)

	// Rate limiter
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"class"},
	)
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
