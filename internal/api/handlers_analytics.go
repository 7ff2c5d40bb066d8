// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/models"
)

// Retention computes cohort retention.
// Query: cohort (required), days (1-365), startDate, endDate.
func (h *Handler) Retention(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	cohort := r.URL.Query().Get("cohort")
	if cohort == "" {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "cohort is required", nil)
		return
	}
	days := getIntParam(r, "days", 7)
	if days < models.MinRetentionDays || days > models.MaxRetentionDays {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
			fmt.Sprintf("days must be between %d and %d", models.MinRetentionDays, models.MaxRetentionDays), nil)
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	result, err := h.engine.Retention(r.Context(), ac.Tenant(), cohort, days, start, end)
	if err != nil {
		respondStoreError(w, r, err, "retention unavailable")
		return
	}
	respondSuccess(w, http.StatusOK, result)
}

// Metrics computes the time-bucketed series for one event name.
// Query: event (required), interval (hourly|daily|weekly|monthly),
// startDate, endDate, filters (JSON-encoded predicate).
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	eventName := r.URL.Query().Get("event")
	if eventName == "" {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "event is required", nil)
		return
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = models.IntervalDaily
	}
	if !models.ValidInterval(interval) {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
			"interval must be one of hourly, daily, weekly, monthly", nil)
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	var pred *models.Predicate
	if raw := r.URL.Query().Get("filters"); raw != "" {
		pred = &models.Predicate{}
		if err := json.Unmarshal([]byte(raw), pred); err != nil {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "filters is not valid JSON", nil)
			return
		}
		if err := pred.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
			return
		}
	}

	result, err := h.engine.Metrics(r.Context(), ac.Tenant(), eventName, interval, pred, start, end)
	if err != nil {
		respondStoreError(w, r, err, "metrics unavailable")
		return
	}
	respondSuccess(w, http.StatusOK, result)
}

// MetricsEvents lists the tenant's distinct event names.
func (h *Handler) MetricsEvents(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	names, err := h.engine.EventNames(r.Context(), ac.Tenant())
	if err != nil {
		respondStoreError(w, r, err, "event names unavailable")
		return
	}
	if names == nil {
		names = []string{}
	}
	respondSuccess(w, http.StatusOK, names)
}

// MetricsSummary mirrors the events summary under the metrics namespace.
func (h *Handler) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	h.EventsSummary(w, r)
}
