// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/ingest"
	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/models"
)

// PostEvents ingests a single event object or an array of up to 1,000.
// Response: {processed, duplicates, timestamp} plus per-event skip reasons.
func (h *Handler) PostEvents(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var raw json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid JSON body", nil)
		return
	}

	payloads, err := decodeEventPayloads(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	// Transport metadata fills gaps the client left.
	for i := range payloads {
		if payloads[i].UserAgent == "" {
			payloads[i].UserAgent = r.UserAgent()
		}
		if payloads[i].IPAddress == "" {
			payloads[i].IPAddress = clientIP(r)
		}
	}

	result, err := h.pipeline.Ingest(r.Context(), ac.Tenant(), payloads)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrEmptyBatch), errors.Is(err, ingest.ErrBatchTooLarge):
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		default:
			logger := logging.Ctx(r.Context())
			logger.Error().Err(err).Msg("ingest failed")
			respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "ingestion unavailable", nil)
		}
		return
	}

	respondSuccess(w, http.StatusOK, result)
}

// decodeEventPayloads accepts either one event object or an array.
func decodeEventPayloads(raw json.RawMessage) ([]models.EventPayload, error) {
	trimmed := strings.TrimLeftFunc(string(raw), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasPrefix(trimmed, "[") {
		var payloads []models.EventPayload
		if err := json.Unmarshal(raw, &payloads); err != nil {
			return nil, errors.New("body must be an event object or an array of events")
		}
		return payloads, nil
	}

	var single models.EventPayload
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, errors.New("body must be an event object or an array of events")
	}
	return []models.EventPayload{single}, nil
}

// clientIP strips the port from the remote address (RealIP middleware has
// already resolved proxies).
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndexByte(addr, ':'); idx > 0 && !strings.HasSuffix(addr, "]") {
		return addr[:idx]
	}
	return addr
}

// EventsSummary returns per-event-name aggregates within the range.
func (h *Handler) EventsSummary(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	summary, err := h.engine.Summary(r.Context(), ac.Tenant(), start, end)
	if err != nil {
		respondStoreError(w, r, err, "summary unavailable")
		return
	}
	respondSuccess(w, http.StatusOK, summary)
}

// EventsRealtime returns the live persisted-event counter.
func (h *Handler) EventsRealtime(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	stats, err := h.engine.RealtimeCount(r.Context(), ac.Tenant())
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("realtime counter unavailable")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "counter unavailable", nil)
		return
	}
	respondSuccess(w, http.StatusOK, stats)
}
