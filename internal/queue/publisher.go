// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/logging"
)

// Publisher wraps the Watermill publisher with a circuit breaker and
// close-once semantics. When the breaker is open, enqueue attempts fail
// fast instead of stacking up against a dead broker.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	mu        sync.RWMutex
	closed    bool
}

// NewPublisher creates a JetStream publisher with reconnect handling and
// message-ID tracking for broker-side deduplication of retried publishes.
func NewPublisher(cfg config.QueueConfig, url string, logger watermill.LoggerAdapter) (*Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("broker disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("broker reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is pre-created by EnsureStream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher: pub,
		breaker:   newPublishBreaker(),
	}, nil
}

// newDirectPublisher wraps an in-process publisher (GoChannel) without a
// breaker; there is no broker to trip on.
func newDirectPublisher(pub message.Publisher) *Publisher {
	return &Publisher{publisher: pub}
}

// newPublishBreaker configures the publish circuit breaker: open after
// five consecutive failures, probe again after ten seconds.
func newPublishBreaker() *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "queue-publish",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("publish circuit breaker state change")
		},
	})
}

// Publish sends a message to the topic. Returns an error when the
// publisher is closed, the breaker is open, or the broker rejects the
// message after its internal retries.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher closed")
	}
	p.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	msg.SetContext(ctx)

	if p.breaker == nil {
		return p.publisher.Publish(topic, msg)
	}

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	return err
}

// Unwrap exposes the underlying Watermill publisher for components that
// need the raw interface (the router's poison-queue middleware).
func (p *Publisher) Unwrap() message.Publisher {
	return p.publisher
}

// Close closes the underlying publisher once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
