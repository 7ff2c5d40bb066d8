// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package models

import (
	"time"
)

// Permission is one capability granted to an API key.
type Permission string

// Permission values. Admin implies all others.
const (
	PermissionRead      Permission = "read"
	PermissionWrite     Permission = "write"
	PermissionAdmin     Permission = "admin"
	PermissionAnalytics Permission = "analytics"
)

// ValidPermission reports whether p is a known permission value.
func ValidPermission(p Permission) bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin, PermissionAnalytics:
		return true
	}
	return false
}

// APIKey authenticates a caller and scopes it to a tenant. Key is the
// opaque hex-encoded secret; ProjectID may be empty for org-wide keys.
type APIKey struct {
	ID          string       `json:"id"`
	Key         string       `json:"key,omitempty"`
	Name        string       `json:"name"`
	OrgID       string       `json:"orgId"`
	ProjectID   string       `json:"projectId,omitempty"`
	Permissions []Permission `json:"permissions"`
	IsActive    bool         `json:"isActive"`
	LastUsedAt  *time.Time   `json:"lastUsedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// HasPermission reports whether the key grants p. Admin implies all.
func (k *APIKey) HasPermission(p Permission) bool {
	for _, held := range k.Permissions {
		if held == PermissionAdmin || held == p {
			return true
		}
	}
	return false
}

// Redacted returns a copy safe for listing responses: the secret is masked
// down to its last four characters.
func (k *APIKey) Redacted() APIKey {
	clone := *k
	if len(clone.Key) > 4 {
		clone.Key = "..." + clone.Key[len(clone.Key)-4:]
	}
	return clone
}

// CreateAPIKeyRequest is the payload for POST /auth/keys.
type CreateAPIKeyRequest struct {
	Name        string       `json:"name" validate:"required,max=255"`
	OrgID       string       `json:"orgId" validate:"required,max=255"`
	ProjectID   string       `json:"projectId" validate:"max=255"`
	Permissions []Permission `json:"permissions" validate:"required,min=1"`
}

// UpdateAPIKeyRequest is the payload for PUT /auth/keys/:id. Nil fields are
// left unchanged.
type UpdateAPIKeyRequest struct {
	Name        *string      `json:"name,omitempty" validate:"omitempty,max=255"`
	Permissions []Permission `json:"permissions,omitempty"`
	IsActive    *bool        `json:"isActive,omitempty"`
}
