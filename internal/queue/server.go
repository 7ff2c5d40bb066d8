// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package queue

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/logging"
)

// serverReadyTimeout bounds the embedded broker's startup.
const serverReadyTimeout = 30 * time.Second

// EmbeddedServer wraps an in-process NATS server with JetStream enabled.
// Single-instance deployments get a durable queue without any external
// dependency; the stream's file storage lives under cfg.StoreDir.
type EmbeddedServer struct {
	server *server.Server
}

// NewEmbeddedServer creates and starts the embedded broker, waiting until
// it is ready for connections.
func NewEmbeddedServer(cfg config.QueueConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "driftline-queue",
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
		MaxPayload: 8 * 1024 * 1024, // 8MB, well above the largest batch job
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(serverReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready within %s", serverReadyTimeout)
	}

	logging.Info().Str("url", ns.ClientURL()).Str("store_dir", cfg.StoreDir).
		Msg("embedded queue broker ready")
	return &EmbeddedServer{server: ns}, nil
}

// ClientURL returns the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// Shutdown stops the broker and waits for it to finish.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}
