// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package websocket

import (
	"testing"
	"time"

	"github.com/driftline/driftline/internal/models"
)

// testClient builds a hub-only client (no network connection).
func testClient(hub *Hub, room string) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan Message, sendBufferSize),
		allowedRoom: room,
	}
}

func TestPublishReachesRoomMembers(t *testing.T) {
	hub := NewHub()
	client := testClient(hub, "acme:web")

	hub.Register(client)
	hub.Join(client, "acme:web")

	hub.Publish("acme:web", Message{Type: MessageTypeNewEvent, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeNewEvent {
			t.Errorf("message type = %s", msg.Type)
		}
	default:
		t.Fatal("subscriber did not receive the message")
	}
}

func TestPublishIsRoomScoped(t *testing.T) {
	hub := NewHub()
	member := testClient(hub, "acme:web")
	outsider := testClient(hub, "other:app")

	hub.Register(member)
	hub.Join(member, "acme:web")
	hub.Register(outsider)
	hub.Join(outsider, "other:app")

	hub.Publish("acme:web", Message{Type: MessageTypeNewEvent})

	if len(member.send) != 1 {
		t.Error("room member missed the message")
	}
	if len(outsider.send) != 0 {
		t.Error("message leaked into another tenant's room")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	hub := NewHub()
	slow := testClient(hub, "acme:web")
	slow.send = make(chan Message, 1)

	hub.Register(slow)
	hub.Join(slow, "acme:web")

	// Second publish must not block; it is dropped.
	done := make(chan struct{})
	go func() {
		hub.Publish("acme:web", Message{Type: MessageTypeNewEvent})
		hub.Publish("acme:web", Message{Type: MessageTypeNewEvent})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if len(slow.send) != 1 {
		t.Errorf("buffered = %d, want 1 (second dropped)", len(slow.send))
	}
}

func TestUnregisterRemovesFromRoom(t *testing.T) {
	hub := NewHub()
	client := testClient(hub, "acme:web")

	hub.Register(client)
	hub.Join(client, "acme:web")
	hub.Unregister(client)

	// Channel is closed and the room is gone; publish must be a no-op.
	hub.Publish("acme:web", Message{Type: MessageTypeNewEvent})

	if _, open := <-client.send; open {
		t.Error("send channel must be closed after unregister")
	}

	// Double unregister is safe.
	hub.Unregister(client)
}

func TestJoinSwitchesRooms(t *testing.T) {
	hub := NewHub()
	client := testClient(hub, "acme:web")

	hub.Register(client)
	hub.Join(client, "acme:web")
	hub.Join(client, "acme:web2")

	hub.Publish("acme:web", Message{Type: MessageTypeNewEvent})
	if len(client.send) != 0 {
		t.Error("client still receives from its previous room")
	}

	hub.Publish("acme:web2", Message{Type: MessageTypeNewEvent})
	if len(client.send) != 1 {
		t.Error("client missed its new room")
	}
}

func TestPublishNewEventShape(t *testing.T) {
	hub := NewHub()
	client := testClient(hub, "acme:web")
	hub.Register(client)
	hub.Join(client, "acme:web")

	event := &models.Event{
		EventName:  "page_view",
		UserID:     "u1",
		Timestamp:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Properties: map[string]any{"path": "/"},
	}
	hub.PublishNewEvent("acme:web", event)

	msg := <-client.send
	if msg.Type != MessageTypeNewEvent {
		t.Fatalf("type = %s", msg.Type)
	}
	data, ok := msg.Data.(NewEventData)
	if !ok {
		t.Fatalf("payload type = %T", msg.Data)
	}
	if data.EventName != "page_view" || data.UserID != "u1" {
		t.Errorf("payload = %+v", data)
	}
}
