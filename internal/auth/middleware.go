// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package auth

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/store"
)

// APIKeyHeader is the authentication header for all non-health endpoints.
const APIKeyHeader = "X-API-Key"

// Middleware provides the authentication and authorization middleware
// chain. All middlewares are chi-compatible func(http.Handler) http.Handler.
type Middleware struct {
	manager *Manager
}

// NewMiddleware creates the middleware factory.
func NewMiddleware(manager *Manager) *Middleware {
	return &Middleware{manager: manager}
}

// Authenticate resolves the X-API-Key header into an AuthContext on the
// request context. Missing, unknown, and inactive keys all yield 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get(APIKeyHeader)
		if secret == "" {
			writeAuthError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "API key required")
			return
		}

		key, err := m.manager.Authenticate(r.Context(), secret)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeAuthError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid API key")
				return
			}
			logger := logging.Ctx(r.Context())
			logger.Error().Err(err).Msg("api key lookup failed")
			writeAuthError(w, http.StatusInternalServerError, models.ErrCodeInternal, "authentication unavailable")
			return
		}

		ac := &AuthContext{
			KeyID:       key.ID,
			OrgID:       key.OrgID,
			ProjectID:   key.ProjectID,
			Permissions: key.Permissions,
		}
		next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), ac)))
	})
}

// RequirePermission fails with 403 unless the caller holds p (admin
// implies all).
func (m *Middleware) RequirePermission(p models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := FromContext(r.Context())
			if ac == nil {
				writeAuthError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "authentication required")
				return
			}
			if !ac.HasPermission(p) {
				writeAuthError(w, http.StatusForbidden, models.ErrCodeForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrgAccess ensures the caller is scoped to an organization.
func (m *Middleware) RequireOrgAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := FromContext(r.Context())
		if ac == nil || ac.OrgID == "" {
			writeAuthError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "organization scope required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireProjectAccess ensures the caller is scoped to a project. Org-wide
// keys cannot reach project-scoped data routes.
func (m *Middleware) RequireProjectAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := FromContext(r.Context())
		if ac == nil || ac.OrgID == "" || ac.ProjectID == "" {
			writeAuthError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "project scope required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeAuthError writes the failure envelope directly; the auth package
// sits below the api package and cannot use its helpers.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, err := json.Marshal(&models.APIResponse{
		Success: false,
		Error:   code,
		Message: message,
	})
	if err != nil {
		return
	}
	_, _ = w.Write(payload)
}
