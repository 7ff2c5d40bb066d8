// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package queue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/driftline/driftline/internal/config"
)

// Router wraps the Watermill router with the queue's delivery policy:
// panic recovery, exponential-backoff retry (a first attempt plus up to
// cfg.MaxRetries retries, backoff starting at cfg.RetryInitialInterval), and
// poison-topic parking for jobs that exhaust their attempt budget.
type Router struct {
	router *message.Router
	cfg    config.QueueConfig
}

// NewRouter builds the consumer router. poisonPublisher receives jobs that
// fail permanently; it is usually the queue's own publisher so parked jobs
// stay durable.
func NewRouter(cfg config.QueueConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Middleware order is outer to inner: recover panics first, then park
	// exhausted jobs, then retry transient failures.
	wmRouter.AddMiddleware(middleware.Recoverer)

	if poisonPublisher != nil && cfg.PoisonTopic != "" {
		poison, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poison)
	}

	wmRouter.AddMiddleware(middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}.Middleware)

	return &Router{router: wmRouter, cfg: cfg}, nil
}

// AddHandler registers a consuming handler for a topic. The handler's
// returned error triggers the retry policy; success acks the job.
func (r *Router) AddHandler(name, topic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) {
	r.router.AddNoPublisherHandler(name, topic, subscriber, handler)
}

// Serve starts the router and blocks until ctx is canceled and all in-flight
// handlers finish (bounded by CloseTimeout). Implements suture.Service.
func (r *Router) Serve(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel closed once the router has started all
// handlers. Tests use it to avoid publishing before subscription.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close stops the router outside of supervision.
func (r *Router) Close() error {
	return r.router.Close()
}
