// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package ingest implements the ingestion pipeline: validate, fingerprint,
// deduplicate, buffer per tenant, and hand coalesced batches to the durable
// queue. The Pipeline is constructed once at startup and injected wherever
// events enter the system; there is no process-wide singleton.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/metrics"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/queue"
)

// Flush triggers, recorded on the flush counter.
const (
	triggerSize     = "size"
	triggerAge      = "age"
	triggerShutdown = "shutdown"
)

// Pipeline owns the tenant buffer registry and the enqueue path.
type Pipeline struct {
	cfg       config.IngestConfig
	dedupTTL  time.Duration
	cache     cache.Store
	publisher *queue.Publisher
	topic     string
	buffers   *bufferSet
}

// New constructs the pipeline. The cache backs dedup markers; the publisher
// is the durable queue's enqueue side.
func New(cfg config.IngestConfig, cacheCfg config.CacheConfig, store cache.Store, publisher *queue.Publisher, topic string) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		dedupTTL:  cacheCfg.DedupTTL(),
		cache:     store,
		publisher: publisher,
		topic:     topic,
		buffers:   newBufferSet(cfg.BatchSize),
	}
}

// Ingest validates, deduplicates, and buffers a batch of payloads for the
// authenticated tenant. Per-event validation failures are reported in the
// result and never fail the batch; batch-bound violations (empty, >1000)
// return ErrEmptyBatch / ErrBatchTooLarge.
//
// Submission order is preserved into the buffer and from there into
// enqueued batch jobs.
func (p *Pipeline) Ingest(ctx context.Context, tenant models.Tenant, payloads []models.EventPayload) (models.IngestResult, error) {
	result := models.IngestResult{Timestamp: time.Now().UTC()}

	if err := ValidateBatch(payloads); err != nil {
		return result, err
	}

	receivedAt := time.Now()
	for i := range payloads {
		event, err := validateEvent(&payloads[i], tenant, receivedAt)
		if err != nil {
			metrics.EventsSkipped.Inc()
			result.Skipped = append(result.Skipped, models.SkippedEvent{Index: i, Reason: err.Error()})
			continue
		}

		if p.isDuplicate(ctx, event) {
			metrics.EventsDuplicate.Inc()
			result.Duplicates++
			continue
		}

		metrics.EventsAccepted.Inc()
		result.Processed++

		if flushed := p.buffers.add(tenant, event); flushed != nil {
			if err := p.enqueue(ctx, tenant, flushed, triggerSize); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

// isDuplicate consults the dedup marker and writes it when absent. Cache
// failures degrade to "not a duplicate": the store's fingerprint uniqueness
// constraint keeps replays collapsed even when dedup fails open.
func (p *Pipeline) isDuplicate(ctx context.Context, event *models.Event) bool {
	key := cache.Key(cache.NSDedup, event.OrgID, event.ProjectID, event.Fingerprint)

	logger := logging.Ctx(ctx)

	_, found, err := p.cache.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("dedup lookup degraded, allowing event through")
		return false
	}
	if found {
		return true
	}

	if err := p.cache.Set(ctx, key, "1", p.dedupTTL); err != nil {
		logger.Warn().Err(err).Msg("dedup marker write failed")
	}
	return false
}

// FlushAged detaches and enqueues every buffer older than the configured
// timeout. Called by the sweeper.
func (p *Pipeline) FlushAged(ctx context.Context) {
	for key, events := range p.buffers.detachAged(p.cfg.BufferTimeout()) {
		tenant := tenantFromKey(key)
		if err := p.enqueue(ctx, tenant, events, triggerAge); err != nil {
			logging.Error().Err(err).Str("tenant", key).Int("events", len(events)).
				Msg("aged buffer flush failed")
		}
	}
}

// FlushAll detaches and enqueues every non-empty buffer, blocking until
// each batch is handed to the queue. Called on graceful shutdown.
func (p *Pipeline) FlushAll(ctx context.Context) {
	for key, events := range p.buffers.detachAll() {
		tenant := tenantFromKey(key)
		if err := p.enqueue(ctx, tenant, events, triggerShutdown); err != nil {
			logging.Error().Err(err).Str("tenant", key).Int("events", len(events)).
				Msg("shutdown buffer flush failed")
		}
	}
}

// enqueue wraps a detached batch into a job and publishes it. Ownership of
// the slice transfers to the job; the pipeline never touches it again.
func (p *Pipeline) enqueue(ctx context.Context, tenant models.Tenant, events []*models.Event, trigger string) error {
	job := queue.NewBatchJob(tenant, events)
	msg, err := job.Message()
	if err != nil {
		return fmt.Errorf("build batch job: %w", err)
	}

	if err := p.publisher.Publish(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("enqueue batch of %d events: %w", len(events), err)
	}

	metrics.BufferFlushes.WithLabelValues(trigger).Inc()
	logger := logging.Ctx(ctx)
	logger.Debug().Str("tenant", tenant.Key()).Str("trigger", trigger).
		Int("events", len(events)).Str("job_id", job.JobID).Msg("batch enqueued")
	return nil
}

// tenantFromKey splits a "{orgId}:{projectId}" buffer key back into a
// tenant. Keys are always built by Tenant.Key, so the first colon is the
// separator (orgId never contains one; it is validated at key creation).
func tenantFromKey(key string) models.Tenant {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return models.Tenant{OrgID: key[:i], ProjectID: key[i+1:]}
		}
	}
	return models.Tenant{OrgID: key}
}
