// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package auth implements API-key tenancy: key lookup and lifecycle,
// request authentication, permission checks, and tenant scoping. Handlers
// never trust client-supplied org/project identifiers; the tenant always
// comes from the authenticated key via AuthContext.
package auth

import (
	"context"

	"github.com/driftline/driftline/internal/models"
)

type contextKey string

// authContextKey carries the AuthContext on the request context.
const authContextKey contextKey = "auth_context"

// AuthContext is the authenticated caller's identity and scope.
type AuthContext struct {
	KeyID       string
	OrgID       string
	ProjectID   string // empty for org-wide keys
	Permissions []models.Permission
}

// HasPermission reports whether the caller holds p. Admin implies all.
func (a *AuthContext) HasPermission(p models.Permission) bool {
	for _, held := range a.Permissions {
		if held == models.PermissionAdmin || held == p {
			return true
		}
	}
	return false
}

// Tenant returns the caller's tenant pair. ProjectID may be empty for
// org-wide keys; project-scoped routes guard against that with
// RequireProjectAccess.
func (a *AuthContext) Tenant() models.Tenant {
	return models.Tenant{OrgID: a.OrgID, ProjectID: a.ProjectID}
}

// WithAuthContext returns a context carrying the authenticated caller.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext retrieves the authenticated caller, or nil when the request
// did not pass authentication middleware.
func FromContext(ctx context.Context) *AuthContext {
	if ac, ok := ctx.Value(authContextKey).(*AuthContext); ok {
		return ac
	}
	return nil
}
