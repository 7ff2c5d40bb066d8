// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/driftline/driftline/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // inbound frames are tiny control messages
	sendBufferSize = 256
)

// Client is the middleman between one websocket connection and the hub.
// Each connection runs a single reader and a single writer goroutine; the
// hub only ever touches the buffered send channel.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	// allowedRoom restricts which room this client may join; it is the
	// authenticated tenant's key. Join requests for other rooms are ignored.
	allowedRoom string
}

// NewClient wraps an upgraded connection. allowedRoom is the only room the
// caller's credentials permit.
func NewClient(hub *Hub, conn *websocket.Conn, allowedRoom string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan Message, sendBufferSize),
		allowedRoom: allowedRoom,
	}
}

// Start registers the client and launches its pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *Client) closeConn() {
	_ = c.conn.Close()
}

// readPump processes inbound control frames (join-room, ping) until the
// connection drops, then unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		switch msg.Type {
		case MessageTypeJoinRoom:
			if msg.Room == c.allowedRoom {
				c.hub.Join(c, msg.Room)
			} else {
				logging.Warn().Str("room", msg.Room).Msg("join-room denied for foreign tenant room")
			}
		case MessageTypePing:
			select {
			case c.send <- Message{Type: MessageTypePong, Timestamp: time.Now().UTC()}:
			default:
			}
		}
	}
}

// writePump drains the send channel to the connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Error().Err(err).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
