// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/middleware"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/ratelimit"
)

// healthRateLimit is a permissive per-IP ceiling for the unauthenticated
// health endpoint; monitoring may poll freely without opening an abuse
// vector.
const healthRateLimit = 1000

// Router assembles the HTTP surface.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	limits  *ratelimit.Middleware
	cfg     *config.Config
}

// NewRouter wires the router with its middleware factories.
func NewRouter(handler *Handler, authMW *auth.Middleware, limits *ratelimit.Middleware, cfg *config.Config) *Router {
	return &Router{handler: handler, authMW: authMW, limits: limits, cfg: cfg}
}

// Setup builds the chi handler tree: global middleware, the Prometheus
// endpoint, the unauthenticated health route, and the authenticated API
// under the configured prefix.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", auth.APIKeyHeader},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.Prometheus)

	r.Handle("/metrics", promhttp.Handler())

	r.Route(router.cfg.Server.APIPrefix, func(r chi.Router) {
		r.With(httprate.LimitByIP(healthRateLimit, time.Minute)).
			Get("/health", router.handler.Health)

		// Everything below requires an API key scoped to an organization.
		r.Group(func(r chi.Router) {
			r.Use(router.authMW.Authenticate)
			r.Use(router.authMW.RequireOrgAccess)

			router.mountEvents(r)
			router.mountFunnels(r)
			router.mountAnalytics(r)
			router.mountUsers(r)
			router.mountKeys(r)

			r.With(router.limits.General(), router.authMW.RequireProjectAccess).
				Get("/ws", router.handler.WebSocket)
		})
	})

	return r
}

func (router *Router) mountEvents(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Use(router.authMW.RequireProjectAccess)

		r.With(router.limits.Ingest(), router.authMW.RequirePermission(models.PermissionWrite)).
			Post("/", router.handler.PostEvents)

		r.Group(func(r chi.Router) {
			r.Use(router.limits.Analytics())
			r.Use(router.authMW.RequirePermission(models.PermissionAnalytics))
			r.Get("/summary", router.handler.EventsSummary)
			r.Get("/realtime", router.handler.EventsRealtime)
		})
	})
}

func (router *Router) mountFunnels(r chi.Router) {
	r.Route("/funnels", func(r chi.Router) {
		r.Use(router.authMW.RequireProjectAccess)

		r.Group(func(r chi.Router) {
			r.Use(router.limits.General())
			r.With(router.authMW.RequirePermission(models.PermissionWrite)).
				Post("/", router.handler.CreateFunnel)
			r.With(router.authMW.RequirePermission(models.PermissionRead)).
				Get("/", router.handler.ListFunnels)
			r.With(router.authMW.RequirePermission(models.PermissionRead)).
				Get("/{id}", router.handler.GetFunnel)
			r.With(router.authMW.RequirePermission(models.PermissionWrite)).
				Put("/{id}", router.handler.UpdateFunnel)
			r.With(router.authMW.RequirePermission(models.PermissionWrite)).
				Delete("/{id}", router.handler.DeleteFunnel)
		})

		r.With(router.limits.Analytics(), router.authMW.RequirePermission(models.PermissionAnalytics)).
			Get("/{id}/analytics", router.handler.FunnelAnalytics)
	})
}

func (router *Router) mountAnalytics(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(router.authMW.RequireProjectAccess)
		r.Use(router.limits.Analytics())
		r.Use(router.authMW.RequirePermission(models.PermissionAnalytics))

		r.Get("/retention", router.handler.Retention)
		r.Get("/metrics", router.handler.Metrics)
		r.Get("/metrics/events", router.handler.MetricsEvents)
		r.Get("/metrics/summary", router.handler.MetricsSummary)
	})
}

func (router *Router) mountUsers(r chi.Router) {
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Use(router.authMW.RequireProjectAccess)
		r.Use(router.limits.Analytics())
		r.Use(router.authMW.RequirePermission(models.PermissionAnalytics))

		r.Get("/journey", router.handler.UserJourney)
		r.Get("/events", router.handler.UserEvents)
		r.Get("/summary", router.handler.UserSummary)
	})
}

func (router *Router) mountKeys(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(router.limits.Admin())
			r.Use(router.authMW.RequirePermission(models.PermissionAdmin))

			r.Post("/keys", router.handler.CreateKey)
			r.Get("/keys", router.handler.ListKeys)
			r.Get("/keys/{id}", router.handler.GetKey)
			r.Put("/keys/{id}", router.handler.UpdateKey)
			r.Delete("/keys/{id}", router.handler.DeleteKey)
		})

		r.With(router.limits.General()).Post("/validate", router.handler.ValidateKey)
	})
}
