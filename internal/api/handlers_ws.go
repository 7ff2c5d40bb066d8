// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/logging"
	ws "github.com/driftline/driftline/internal/websocket"
)

// upgrader configures the WebSocket handshake. Origins are checked against
// the configured CORS origins; an empty configuration admits only
// same-host browsers and non-browser clients (no Origin header).
func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkWebSocketOrigin,
	}
}

func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// WebSocket upgrades the connection and attaches it to the hub. The client
// then emits join-room with its tenant room "{orgId}:{projectId}" and
// receives new_event notifications.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, ac.Tenant().Key())
	client.Start()
}
