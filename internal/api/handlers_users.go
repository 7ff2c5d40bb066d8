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
	"github.com/driftline/driftline/internal/store"
)

// UserJourney returns one user's chronologically ordered events.
func (h *Handler) UserJourney(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	journey, err := h.engine.Journey(r.Context(), ac.Tenant(), chi.URLParam(r, "userId"), start, end)
	if err != nil {
		respondStoreError(w, r, err, "no events for this user in range")
		return
	}
	respondSuccess(w, http.StatusOK, journey)
}

// UserEvents returns one page of a user's events, newest first.
// Query: page, limit, startDate, endDate, eventName.
func (h *Handler) UserEvents(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	page := getIntParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := getIntParam(r, "limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	events, total, err := h.engine.UserEvents(r.Context(), ac.Tenant(), chi.URLParam(r, "userId"), store.EventFilter{
		EventName: r.URL.Query().Get("eventName"),
		Start:     start,
		End:       end,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		respondStoreError(w, r, err, "events unavailable")
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	respondPage(w, events, page, limit, total)
}

// UserSummary returns one user's aggregate activity.
func (h *Handler) UserSummary(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	summary, err := h.engine.UserSummary(r.Context(), ac.Tenant(), chi.URLParam(r, "userId"))
	if err != nil {
		respondStoreError(w, r, err, "user not found")
		return
	}
	respondSuccess(w, http.StatusOK, summary)
}
