// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/metrics"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/queue"
	"github.com/driftline/driftline/internal/store"
)

// Inserter is the slice of the event store the worker needs.
type Inserter interface {
	InsertEvents(ctx context.Context, events []*models.Event) (store.InsertResult, error)
}

// Broadcaster is the slice of the realtime bus the worker needs.
type Broadcaster interface {
	PublishNewEvent(room string, event *models.Event)
}

// Worker consumes batch jobs from the queue and persists them. A returned
// error triggers the queue's retry policy; per-event insert failures are
// recorded but do not fail the job.
type Worker struct {
	inserter Inserter
	cache    cache.Store
	bus      Broadcaster
}

// NewWorker builds the persistence worker. bus may be nil (no fan-out).
func NewWorker(inserter Inserter, store cache.Store, bus Broadcaster) *Worker {
	return &Worker{inserter: inserter, cache: store, bus: bus}
}

// Handle is the queue handler for one batch job.
func (w *Worker) Handle(msg *message.Message) error {
	job, err := queue.ParseBatchJob(msg)
	if err != nil {
		// Undecodable payloads can never succeed; fail so the poison queue
		// parks them after the attempt budget.
		return err
	}

	ctx := msg.Context()
	result, err := w.inserter.InsertEvents(ctx, job.Events)
	if err != nil {
		metrics.JobsFailed.Inc()
		return fmt.Errorf("persist batch %s: %w", job.JobID, err)
	}

	metrics.EventsPersisted.Add(float64(result.Inserted))
	if len(result.Failed) > 0 || result.Duplicates > 0 {
		logging.Warn().Str("job_id", job.JobID).Int("inserted", result.Inserted).
			Int("duplicates", result.Duplicates).Int("failed", len(result.Failed)).
			Msg("batch persisted with skips")
	}

	w.bumpCounters(ctx, job, result.Inserted, result.Failed)
	w.fanOut(job, result.Failed)
	return nil
}

// bumpCounters updates the realtime counters. Best-effort: counter errors
// are logged, never propagated.
func (w *Worker) bumpCounters(ctx context.Context, job *queue.BatchJob, inserted int, failed []models.SkippedEvent) {
	tenant := job.Tenant

	if inserted > 0 {
		totalKey := cache.Key(cache.NSEvents, tenant.OrgID, tenant.ProjectID, "count")
		if _, err := w.cache.IncrBy(ctx, totalKey, int64(inserted), 0); err != nil {
			logging.Warn().Err(err).Str("tenant", tenant.Key()).Msg("event counter update failed")
		}
	}

	failedIdx := failedIndexSet(failed)
	for i, event := range job.Events {
		if _, bad := failedIdx[i]; bad {
			continue
		}
		nameKey := cache.Key(cache.NSEvents, tenant.OrgID, tenant.ProjectID, event.EventName, "count")
		if _, err := w.cache.IncrBy(ctx, nameKey, 1, 0); err != nil {
			logging.Warn().Err(err).Str("tenant", tenant.Key()).Msg("per-event counter update failed")
			break
		}
	}
}

// fanOut notifies the tenant's realtime room of each persisted event.
// Fire-and-forget: bus failures never roll back persistence.
func (w *Worker) fanOut(job *queue.BatchJob, failed []models.SkippedEvent) {
	if w.bus == nil {
		return
	}

	room := job.Tenant.Key()
	failedIdx := failedIndexSet(failed)
	for i, event := range job.Events {
		if _, bad := failedIdx[i]; bad {
			continue
		}
		w.bus.PublishNewEvent(room, event)
	}
}

func failedIndexSet(failed []models.SkippedEvent) map[int]struct{} {
	if len(failed) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(failed))
	for _, f := range failed {
		set[f.Index] = struct{}{}
	}
	return set
}
