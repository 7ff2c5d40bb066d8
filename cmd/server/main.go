// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package main is the entry point for the Driftline server.
//
// Driftline is a multi-tenant event analytics backend: it ingests
// high-volume behavioral events and answers analytical questions over them
// (time-bucketed metrics, conversion funnels, cohort retention, per-user
// journeys, event summaries). Tenants are isolated by (organization,
// project) pairs, authenticated via API keys.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered defaults / config.yaml / environment
//  2. Logging: global zerolog logger
//  3. KV cache: BadgerDB (dedup markers, counters, rate limits, results)
//  4. Event store: DuckDB (events, funnels, api_keys)
//  5. Queue: embedded NATS JetStream + Watermill publisher/subscriber
//  6. Components: websocket hub, ingestion pipeline, persistence worker,
//     analytics engine, key manager, rate limiter
//  7. Supervision: suture tree running hub, sweeper, queue router, HTTP
//
// # Shutdown
//
// SIGINT/SIGTERM cancels the tree context: the HTTP server stops accepting
// requests and drains, the sweeper flushes every non-empty tenant buffer
// through the queue, and the queue router finishes in-flight jobs up to its
// close timeout. Jobs not drained remain in JetStream file storage for the
// next instance.
//
// # Configuration
//
// See internal/config for the full environment surface. The essentials:
//
//	PORT, HOST, API_PREFIX
//	DATABASE_PATH, CACHE_PATH, NATS_STORE_DIR
//	EVENT_BATCH_SIZE, EVENT_BUFFER_TIMEOUT_MS, EVENT_WORKER_CONCURRENCY
//	RATE_LIMIT_WINDOW_MS, RATE_LIMIT_MAX_REQUESTS
//	CACHE_TTL, QUERY_CACHE_TTL, CORS_ORIGIN
//	BOOTSTRAP_ORG, BOOTSTRAP_PROJECT (first admin key on empty installs)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftline/driftline/internal/analytics"
	"github.com/driftline/driftline/internal/api"
	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/cache"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/ingest"
	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/queue"
	"github.com/driftline/driftline/internal/ratelimit"
	"github.com/driftline/driftline/internal/store"
	"github.com/driftline/driftline/internal/supervisor"
	ws "github.com/driftline/driftline/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

//nolint:gocyclo // Startup wiring is inherently sequential
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("environment", cfg.Server.Environment).Msg("driftline starting")

	// Root context: canceled by SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// KV cache.
	var kv cache.Store
	if cfg.Cache.Path != "" {
		badgerStore, err := cache.NewBadgerStore(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open kv cache: %w", err)
		}
		kv = badgerStore
	} else {
		logging.Warn().Msg("no cache path configured, using in-memory KV store")
		kv = cache.NewMemoryStore()
	}
	defer closeQuietly("kv cache", kv.Close)

	// Event store.
	db, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer closeQuietly("event store", db.Close)

	// Durable job queue.
	q, err := queue.New(ctx, cfg.Queue, nil)
	if err != nil {
		return fmt.Errorf("start queue: %w", err)
	}
	defer closeQuietly("queue", q.Close)

	// Realtime bus.
	hub := ws.NewHub()

	// Ingestion pipeline and persistence worker.
	pipeline := ingest.New(cfg.Ingest, cfg.Cache, kv, q.Publisher(), cfg.Queue.BatchTopic)
	worker := ingest.NewWorker(db, kv, hub)

	qRouter, err := queue.NewRouter(cfg.Queue, q.Publisher().Unwrap(), logging.NewWatermillAdapter())
	if err != nil {
		return fmt.Errorf("create queue router: %w", err)
	}
	qRouter.AddHandler("persist-events", cfg.Queue.BatchTopic, q.Subscriber(), worker.Handle)

	// Query engine, tenancy, rate limits.
	engine := analytics.New(db, kv, cfg.Cache)
	keys := auth.NewManager(db)
	authMW := auth.NewMiddleware(keys)
	limits := ratelimit.NewMiddleware(ratelimit.NewLimiter(kv), cfg.RateLimit)

	if err := bootstrapAdminKey(ctx, cfg, db, keys); err != nil {
		return err
	}

	// HTTP surface.
	handler := api.NewHandler(cfg, pipeline, engine, db, keys, hub)
	httpRouter := api.NewRouter(handler, authMW, limits, cfg)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpRouter.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	// Supervision tree. Order matters for shutdown: the HTTP server stops
	// taking requests, the sweeper's exit flushes remaining buffers into
	// the queue, and the router drains in-flight jobs.
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(treeCfg)
	tree.Add(hub)
	tree.Add(ingest.NewSweeper(pipeline))
	tree.Add(qRouter)
	tree.Add(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Str("prefix", cfg.Server.APIPrefix).Msg("serving")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
		if err := <-errCh; err != nil && ctx.Err() == nil {
			return err
		}
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("supervisor tree failed: %w", err)
		}
	}

	// Belt and braces: the sweeper flushes on exit, but if it never ran
	// (startup crash path) the buffers drain here.
	pipeline.FlushAll(context.Background())

	logging.Info().Msg("driftline stopped")
	return nil
}

// bootstrapAdminKey mints the first admin key on an empty install so the
// operator can reach the API at all. The secret is logged exactly once.
func bootstrapAdminKey(ctx context.Context, cfg *config.Config, db *store.DB, keys *auth.Manager) error {
	if cfg.Auth.BootstrapOrg == "" {
		return nil
	}

	count, err := db.CountAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap check: %w", err)
	}
	if count > 0 {
		return nil
	}

	key, err := keys.Create(ctx, &models.CreateAPIKeyRequest{
		Name:        "bootstrap-admin",
		OrgID:       cfg.Auth.BootstrapOrg,
		ProjectID:   cfg.Auth.BootstrapProject,
		Permissions: []models.Permission{models.PermissionAdmin},
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}

	logging.Warn().Str("org_id", key.OrgID).Str("api_key", key.Key).
		Msg("bootstrap admin key created; store this secret, it is not shown again")
	return nil
}

// closeQuietly closes a component at exit, logging failures.
func closeQuietly(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("close failed")
	}
}
