// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/logging"
)

// EnsureStream creates or updates the JetStream stream that backs the job
// queue. Idempotent; called once at startup before publishers and
// subscribers attach.
//
// The stream uses file storage for durability and LimitsPolicy retention:
// one MaxMsgs cap of cfg.MaxMsgs + cfg.MaxPoisoned counts every retained job
// (pending, completed and parked alike; oldest jobs are discarded first),
// and MaxAge expires stale jobs. The poison topic shares the stream via the
// subject wildcard, so parked jobs are durable too; they have no cap of
// their own.
func EnsureStream(ctx context.Context, url string, cfg config.QueueConfig) error {
	conn, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer conn.Close()

	js, err := jetstream.New(conn)
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Subjects:    []string{subjectRoot(cfg.BatchTopic) + ".>"},
		Retention:   jetstream.LimitsPolicy,
		Storage:     jetstream.FileStorage,
		MaxMsgs:     cfg.MaxMsgs + cfg.MaxPoisoned,
		MaxAge:      cfg.MaxAge,
		MaxBytes:    cfg.MaxBytes,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}

	if _, err := js.Stream(ctx, cfg.StreamName); err == nil {
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", cfg.StreamName, err)
		}
		logging.Info().Str("stream", cfg.StreamName).Msg("queue stream updated")
		return nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("check stream %s: %w", cfg.StreamName, err)
	}

	if _, err := js.CreateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("create stream %s: %w", cfg.StreamName, err)
	}
	logging.Info().Str("stream", cfg.StreamName).Msg("queue stream created")
	return nil
}

// subjectRoot returns the first token of a dotted topic, the wildcard base
// covering the batch topic and its poison sibling.
func subjectRoot(topic string) string {
	if i := strings.IndexByte(topic, '.'); i > 0 {
		return topic[:i]
	}
	return topic
}
