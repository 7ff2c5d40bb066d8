// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package websocket implements the realtime bus: a subscription registry
// mapping "{orgId}:{projectId}" rooms to connected clients, with
// fire-and-forget publishing of newly persisted events.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/metrics"
	"github.com/driftline/driftline/internal/models"
)

// Message types exchanged with clients.
const (
	MessageTypeJoinRoom = "join-room"
	MessageTypeNewEvent = "new_event"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is one WebSocket frame.
type Message struct {
	Type      string    `json:"type"`
	Room      string    `json:"room,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEventData is the payload of a new_event notification.
type NewEventData struct {
	EventName  string         `json:"eventName"`
	UserID     string         `json:"userId"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Hub maintains the room registry. The registry mutates on connect,
// join, and disconnect; publishing only reads it. Delivery is
// fire-and-forget: a slow subscriber's full send buffer drops the message
// rather than stalling the publisher.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
	// byClient tracks each client's current room for O(1) unsubscribe.
	byClient map[*Client]string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*Client]bool),
		byClient: make(map[*Client]string),
	}
}

// Register adds a connected client without a room. The client receives
// nothing until it joins one.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.byClient[client] = ""
	total := len(h.byClient)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

// Join subscribes a client to a room, leaving its previous room first.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	if prev, ok := h.byClient[client]; ok && prev != "" {
		h.removeFromRoomLocked(client, prev)
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	h.byClient[client] = room
	h.mu.Unlock()

	logging.Debug().Str("room", room).Msg("websocket client joined room")
}

// Unregister removes a client from its room and the registry, closing its
// send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	room, known := h.byClient[client]
	if known {
		if room != "" {
			h.removeFromRoomLocked(client, room)
		}
		delete(h.byClient, client)
		close(client.send)
	}
	total := len(h.byClient)
	h.mu.Unlock()

	if known {
		metrics.WebSocketClients.Set(float64(total))
		logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
	}
}

func (h *Hub) removeFromRoomLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish delivers a message to every subscriber of a room. Non-blocking:
// full send buffers drop the message.
func (h *Hub) Publish(room string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.send <- msg:
		default:
			metrics.WebSocketDropped.Inc()
		}
	}
}

// PublishNewEvent notifies a tenant room of a newly persisted event.
// Implements the ingestion worker's Broadcaster.
func (h *Hub) PublishNewEvent(room string, event *models.Event) {
	h.Publish(room, Message{
		Type: MessageTypeNewEvent,
		Data: NewEventData{
			EventName:  event.EventName,
			UserID:     event.UserID,
			Timestamp:  event.Timestamp,
			Properties: event.Properties,
		},
		Timestamp: time.Now().UTC(),
	})
}

// Serve blocks until ctx is canceled, then closes every connection.
// Implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.byClient))
	for client := range h.byClient {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.Unregister(client)
		client.closeConn()
	}

	logging.Info().Int("clients_closed", len(clients)).Msg("websocket hub shut down")
	return ctx.Err()
}

// String names the service in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}
