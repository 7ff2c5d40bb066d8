// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/store"
	"github.com/driftline/driftline/internal/validation"
)

// respondJSON writes an envelope with the given status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	payload, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}

// respondSuccess writes a success envelope carrying data.
func respondSuccess(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, &models.APIResponse{Success: true, Data: data})
}

// respondPage writes a success envelope with pagination metadata.
func respondPage(w http.ResponseWriter, data any, page, limit int, total int64) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Data:    data,
		Pagination: &models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// respondMessage writes a success envelope carrying only a message.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &models.APIResponse{Success: true, Message: message})
}

// respondError writes a failure envelope. details is optional per-field
// context (validation reasons).
func respondError(w http.ResponseWriter, status int, code, message string, details any) {
	respondJSON(w, status, &models.APIResponse{
		Success: false,
		Error:   code,
		Message: message,
		Details: details,
	})
}

// respondStoreError maps store sentinels onto 404/409 and anything else
// onto an opaque 500. Internal error text never reaches the client.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, notFoundMsg, nil)
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, models.ErrCodeConflict, "name already in use", nil)
	default:
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "internal error", nil)
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

// validateRequest runs struct validation and returns the details map for a
// 400 response, or nil when valid.
func validateRequest(v any) map[string]string {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.Details()
	}
	return nil
}

// timeFormats lists the accepted query timestamp layouts.
var timeFormats = []string{time.RFC3339, "2006-01-02"}

// parseTime parses a query timestamp in RFC3339 or date-only form.
func parseTime(value string) (time.Time, error) {
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid timestamp", value)
}

// parseTimeRange reads optional startDate/endDate query parameters.
// Zero values mean "caller did not constrain this side".
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		if start, err = parseTime(raw); err != nil {
			return start, end, fmt.Errorf("startDate: %w", err)
		}
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		if end, err = parseTime(raw); err != nil {
			return start, end, fmt.Errorf("endDate: %w", err)
		}
		// A date-only end bound means "through the end of that day".
		if len(strings.TrimSpace(raw)) == len("2006-01-02") {
			end = end.AddDate(0, 0, 1).Add(-time.Second)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("endDate precedes startDate")
	}
	return start, end, nil
}

// getIntParam reads an integer query parameter with a default.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
