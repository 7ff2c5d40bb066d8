// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package api provides the HTTP surface: Chi routing, request handlers,
// and the thin request-to-component mapping. Handlers validate and parse,
// then delegate to the ingestion pipeline, the analytics engine, the key
// manager, or the store; no business logic lives here.
//
// Handler methods are split across files:
//   - handlers.go:           Handler struct and constructor (this file)
//   - handlers_health.go:    liveness endpoint
//   - handlers_events.go:    ingestion, summary, realtime counter
//   - handlers_funnels.go:   funnel CRUD and funnel analytics
//   - handlers_analytics.go: retention and metrics
//   - handlers_users.go:     journey, per-user events, user summary
//   - handlers_keys.go:      API key CRUD and validation
//   - handlers_ws.go:        WebSocket upgrade
package api

import (
	"time"

	"github.com/driftline/driftline/internal/analytics"
	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/ingest"
	"github.com/driftline/driftline/internal/store"
	ws "github.com/driftline/driftline/internal/websocket"
)

// Pagination bounds for listing endpoints.
const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Handler carries the dependencies of all HTTP handlers.
type Handler struct {
	cfg       *config.Config
	pipeline  *ingest.Pipeline
	engine    *analytics.Engine
	db        *store.DB
	keys      *auth.Manager
	hub       *ws.Hub
	startTime time.Time
}

// NewHandler wires the handler with every component it fronts.
func NewHandler(cfg *config.Config, pipeline *ingest.Pipeline, engine *analytics.Engine, db *store.DB, keys *auth.Manager, hub *ws.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		pipeline:  pipeline,
		engine:    engine,
		db:        db,
		keys:      keys,
		hub:       hub,
		startTime: time.Now(),
	}
}
