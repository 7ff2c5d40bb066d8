// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"net/http"
	"time"

	"github.com/driftline/driftline/internal/models"
)

// Health reports liveness. Unauthenticated.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, &models.HealthStatus{
		Status:      "OK",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Seconds(),
		Environment: h.cfg.Server.Environment,
	})
}
