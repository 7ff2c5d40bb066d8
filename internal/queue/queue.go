// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package queue implements the durable job queue on Watermill over NATS
// JetStream. Batch jobs enqueued by the ingestion pipeline survive process
// restarts in the file-backed stream; the consumer router retries failed
// jobs with exponential backoff and parks permanent failures on a poison
// topic.
//
// For tests and broker-less development, NewInProcess returns the same
// surface backed by Watermill's GoChannel pub/sub (no durability).
package queue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/logging"
)

// Queue bundles the publisher and subscriber sides of the job transport,
// plus the embedded broker when one is running.
type Queue struct {
	publisher  *Publisher
	subscriber message.Subscriber
	server     *EmbeddedServer
	cfg        config.QueueConfig
}

// New builds the full NATS-backed queue: embedded server (optional),
// JetStream stream provisioning, resilient publisher, durable subscriber.
func New(ctx context.Context, cfg config.QueueConfig, logger watermill.LoggerAdapter) (*Queue, error) {
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}

	q := &Queue{cfg: cfg}

	url := cfg.URL
	if cfg.Embedded {
		server, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded broker: %w", err)
		}
		q.server = server
		url = server.ClientURL()
	}

	if err := EnsureStream(ctx, url, cfg); err != nil {
		q.shutdownServer()
		return nil, fmt.Errorf("provision stream: %w", err)
	}

	publisher, err := NewPublisher(cfg, url, logger)
	if err != nil {
		q.shutdownServer()
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	q.publisher = publisher

	subscriber, err := NewSubscriber(cfg, url, logger)
	if err != nil {
		_ = publisher.Close()
		q.shutdownServer()
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	q.subscriber = subscriber

	return q, nil
}

// NewInProcess returns a queue backed by an in-memory GoChannel pub/sub.
// No durability; intended for tests and local development without a broker.
func NewInProcess(cfg config.QueueConfig, logger watermill.LoggerAdapter) *Queue {
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}
	channel := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)

	return &Queue{
		publisher:  newDirectPublisher(channel),
		subscriber: channel,
		cfg:        cfg,
	}
}

// Publisher returns the enqueue side.
func (q *Queue) Publisher() *Publisher {
	return q.publisher
}

// Subscriber returns the consume side, for router handler registration.
func (q *Queue) Subscriber() message.Subscriber {
	return q.subscriber
}

// Config returns the queue configuration.
func (q *Queue) Config() config.QueueConfig {
	return q.cfg
}

// Close shuts down publisher, subscriber, and the embedded broker, in that
// order. Undrained jobs remain in the stream's file storage for the next
// process instance.
func (q *Queue) Close() error {
	var firstErr error
	if q.publisher != nil {
		if err := q.publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if q.subscriber != nil {
		if err := q.subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	q.shutdownServer()
	return firstErr
}

func (q *Queue) shutdownServer() {
	if q.server != nil {
		q.server.Shutdown()
		q.server = nil
	}
}
