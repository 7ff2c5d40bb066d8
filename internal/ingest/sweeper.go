// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ingest

import (
	"context"
	"time"

	"github.com/driftline/driftline/internal/logging"
)

// Sweeper periodically flushes aged tenant buffers. It is a cooperative
// task with explicit lifecycle: Serve runs under the supervisor and returns
// when ctx is canceled, flushing everything left on the way out.
type Sweeper struct {
	pipeline *Pipeline
	interval time.Duration
}

// NewSweeper creates a sweeper over the pipeline's buffers.
func NewSweeper(pipeline *Pipeline) *Sweeper {
	return &Sweeper{
		pipeline: pipeline,
		interval: pipeline.cfg.SweepInterval(),
	}
}

// Serve implements suture.Service.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("buffer sweeper started")

	for {
		select {
		case <-ctx.Done():
			// Final drain so no buffered event waits for the next instance.
			s.pipeline.FlushAll(context.WithoutCancel(ctx))
			logging.Info().Msg("buffer sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.pipeline.FlushAged(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (s *Sweeper) String() string {
	return "buffer-sweeper"
}
