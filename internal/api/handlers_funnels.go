// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/models"
)

// CreateFunnel creates a tenant-scoped funnel (2-10 steps, unique step
// event names, unique funnel name per tenant).
func (h *Handler) CreateFunnel(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var req models.CreateFunnelRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid JSON body", nil)
		return
	}
	if details := validateRequest(&req); details != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid funnel", details)
		return
	}
	if err := models.ValidateSteps(req.Steps); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	funnel := &models.Funnel{
		OrgID:       ac.OrgID,
		ProjectID:   ac.ProjectID,
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
	}
	if err := h.db.CreateFunnel(r.Context(), funnel); err != nil {
		respondStoreError(w, r, err, "funnel not found")
		return
	}
	respondSuccess(w, http.StatusCreated, funnel)
}

// ListFunnels lists the tenant's funnels.
func (h *Handler) ListFunnels(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	funnels, err := h.db.ListFunnels(r.Context(), ac.Tenant())
	if err != nil {
		respondStoreError(w, r, err, "funnels unavailable")
		return
	}
	if funnels == nil {
		funnels = []models.Funnel{}
	}
	respondSuccess(w, http.StatusOK, funnels)
}

// GetFunnel returns one funnel by id.
func (h *Handler) GetFunnel(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	funnel, err := h.db.GetFunnel(r.Context(), ac.Tenant(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "funnel not found")
		return
	}
	respondSuccess(w, http.StatusOK, funnel)
}

// UpdateFunnel applies partial changes to a funnel. Replacement steps are
// re-validated against the structural funnel rules.
func (h *Handler) UpdateFunnel(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var req models.UpdateFunnelRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid JSON body", nil)
		return
	}
	if details := validateRequest(&req); details != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid funnel update", details)
		return
	}

	funnel, err := h.db.GetFunnel(r.Context(), ac.Tenant(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "funnel not found")
		return
	}

	if req.Name != nil {
		funnel.Name = *req.Name
	}
	if req.Description != nil {
		funnel.Description = *req.Description
	}
	if req.Steps != nil {
		if err := models.ValidateSteps(req.Steps); err != nil {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
			return
		}
		funnel.Steps = req.Steps
	}

	if err := h.db.UpdateFunnel(r.Context(), funnel); err != nil {
		respondStoreError(w, r, err, "funnel not found")
		return
	}
	respondSuccess(w, http.StatusOK, funnel)
}

// DeleteFunnel removes a funnel.
func (h *Handler) DeleteFunnel(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	if err := h.db.DeleteFunnel(r.Context(), ac.Tenant(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err, "funnel not found")
		return
	}
	respondMessage(w, http.StatusOK, "funnel deleted")
}

// FunnelAnalytics computes conversion through a funnel over the range.
func (h *Handler) FunnelAnalytics(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}

	result, err := h.engine.Funnel(r.Context(), ac.Tenant(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		respondStoreError(w, r, err, "funnel not found")
		return
	}
	respondSuccess(w, http.StatusOK, result)
}
