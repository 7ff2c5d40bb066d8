// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/models"
)

// CreateKey mints a new API key. Admin only. The plaintext secret appears
// exactly once, in this response.
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var req models.CreateAPIKeyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid JSON body", nil)
		return
	}
	// Admin keys are org-scoped: they mint keys for their own org only.
	req.OrgID = ac.OrgID
	if details := validateRequest(&req); details != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid key request", details)
		return
	}

	key, err := h.keys.Create(r.Context(), &req)
	if err != nil {
		respondStoreError(w, r, err, "key not found")
		return
	}
	respondSuccess(w, http.StatusCreated, key)
}

// ListKeys lists the org's keys with redacted secrets.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	keys, err := h.keys.List(r.Context(), ac.OrgID)
	if err != nil {
		respondStoreError(w, r, err, "keys unavailable")
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}
	respondSuccess(w, http.StatusOK, keys)
}

// GetKey returns one key by id with a redacted secret.
func (h *Handler) GetKey(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	key, err := h.keys.Get(r.Context(), ac.OrgID, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "key not found")
		return
	}
	redacted := key.Redacted()
	respondSuccess(w, http.StatusOK, &redacted)
}

// UpdateKey changes a key's name, permissions, or active flag.
func (h *Handler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var req models.UpdateAPIKeyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid JSON body", nil)
		return
	}
	if details := validateRequest(&req); details != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid key update", details)
		return
	}

	key, err := h.keys.Update(r.Context(), ac.OrgID, chi.URLParam(r, "id"), &req)
	if err != nil {
		respondStoreError(w, r, err, "key not found")
		return
	}
	respondSuccess(w, http.StatusOK, key)
}

// DeleteKey removes a key; any subsequent use of its secret is 401.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	if err := h.keys.Delete(r.Context(), ac.OrgID, chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err, "key not found")
		return
	}
	respondMessage(w, http.StatusOK, "API key deleted")
}

// ValidateKey echoes the caller's authenticated context. Any authenticated
// caller may use it to introspect its own key.
func (h *Handler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	respondSuccess(w, http.StatusOK, map[string]any{
		"valid":       true,
		"orgId":       ac.OrgID,
		"projectId":   ac.ProjectID,
		"permissions": ac.Permissions,
	})
}
