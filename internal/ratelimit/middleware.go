// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/models"
)

// Route classes, one quota tier each.
const (
	ClassGeneral   = "general"
	ClassIngest    = "ingest"
	ClassAnalytics = "analytics"
	ClassAdmin     = "admin"
)

// Tier is one route class's quota.
type Tier struct {
	Class  string
	Window time.Duration
	Max    int
}

// Middleware builds chi-compatible limiter middlewares from the configured
// tiers.
type Middleware struct {
	limiter *Limiter
	cfg     config.RateLimitConfig
}

// NewMiddleware creates the limiter middleware factory.
func NewMiddleware(limiter *Limiter, cfg config.RateLimitConfig) *Middleware {
	return &Middleware{limiter: limiter, cfg: cfg}
}

// General returns the default tier middleware.
func (m *Middleware) General() func(http.Handler) http.Handler {
	return m.limit(Tier{ClassGeneral, m.cfg.Window(), m.cfg.MaxRequests})
}

// Ingest returns the event ingestion tier middleware.
func (m *Middleware) Ingest() func(http.Handler) http.Handler {
	return m.limit(Tier{ClassIngest, m.cfg.IngestWindow(), m.cfg.IngestMaxRequests})
}

// Analytics returns the analytics query tier middleware.
func (m *Middleware) Analytics() func(http.Handler) http.Handler {
	return m.limit(Tier{ClassAnalytics, m.cfg.AnalyticsWindow(), m.cfg.AnalyticsMaxRequests})
}

// Admin returns the key-management tier middleware.
func (m *Middleware) Admin() func(http.Handler) http.Handler {
	return m.limit(Tier{ClassAdmin, m.cfg.AdminWindow(), m.cfg.AdminMaxRequests})
}

// limit builds the middleware for one tier. The caller key is the
// authenticated API key when present, otherwise the client IP (populated
// by chi's RealIP middleware upstream).
func (m *Middleware) limit(tier Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.cfg.Disabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerKey(r)
			allowed, retryAfter := m.limiter.Allow(r.Context(), tier.Class, caller, tier.Window, tier.Max)
			if !allowed {
				writeRateLimited(w, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the caller: API key id when authenticated, client
// IP otherwise.
func callerKey(r *http.Request) string {
	if ac := auth.FromContext(r.Context()); ac != nil && ac.KeyID != "" {
		return ac.KeyID
	}
	return r.RemoteAddr
}

// writeRateLimited writes the 429 envelope with retryAfter in both the
// body and the Retry-After header.
func writeRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)

	payload, err := json.Marshal(&models.APIResponse{
		Success:    false,
		Error:      models.ErrCodeRateLimited,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
	})
	if err != nil {
		return
	}
	_, _ = w.Write(payload)
}
