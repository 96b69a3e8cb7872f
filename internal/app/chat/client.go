/*
Package chat contains the realtime presence and messaging core.

This file defines the Client struct, representing one live WebSocket
connection. It owns the read and write pumps and implements the Pusher
interface the fan-out layer delivers through.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"agrolink/internal/app/identity"
	"agrolink/internal/pkg/logx"
	"agrolink/internal/pkg/randx"
)

const (
	// timeout for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time the server waits for a Pong from the client.
	pongWait = 60 * time.Second

	// frequency of server Ping messages.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame.
	maxFrameSize = 16384

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256

	// WsCloseCodeEvicted is a custom WebSocket Close Code (4000-4999 range)
	// signalling that the server dropped the connection (slow consumer or
	// forced eviction).
	WsCloseCodeEvicted = 4001
)

// Client is one live WebSocket connection bound to an authenticated identity.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// user is the verified owner of the connection, fixed at admission.
	user identity.Identity

	// connID uniquely identifies this session in the registry.
	connID string

	// send queues encoded events waiting to go out on the socket.
	send chan []byte

	closeOnce sync.Once

	logger zerolog.Logger
}

// NewClient constructs a Client with a fresh connection id.
func NewClient(hub *Hub, wsConn *websocket.Conn, user identity.Identity) *Client {
	connID := randx.ConnectionID()

	clientLogger := logx.Logger().With().
		Str("user_id", user.ID).
		Str("conn_id", connID).
		Logger()

	return &Client{
		hub:    hub,
		conn:   wsConn,
		user:   user,
		connID: connID,
		send:   make(chan []byte, sendQueueSize),
		logger: clientLogger,
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.connID
}

// User returns the identity owning this connection.
func (c *Client) User() identity.Identity {
	return c.user
}

// Push implements Pusher. It encodes the event and enqueues it without
// blocking; false means the queue is full or closed and the event was dropped.
func (c *Client) Push(ev Event) bool {
	data, err := ev.Encode()
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Error encoding event for client.")
		return false
	}

	defer func() {
		// Push racing closeSend can write to a closed channel.
		recover()
	}()

	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping event.")
		return false
	}
}

// ReadPump reads frames from the WebSocket connection, dispatching each to
// the hub. It handles heartbeats and performs cleanup when the connection
// drops.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.hub.HandleFrame(c, frameBytes)
	}
}

// cleanupOnDisconnect detaches the client from the hub and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued events to the WebSocket connection and keeps the
// heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !c.writeQueued(data, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueued writes one queued frame. Returns false when the pump should stop.
func (c *Client) writeQueued(data []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a heartbeat Ping. Returns false on write failure.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// Kick closes the connection with a custom close frame and shuts the send
// queue so the write pump exits.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeEvicted).
		Str("reason", reason).
		Msg("Closing connection from server side.")

	closeMessage := websocket.FormatCloseMessage(WsCloseCodeEvicted, reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send close frame.")
	}

	c.closeSend()
}

// closeSend closes the outbound queue exactly once.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// inboundFrame is the envelope clients send on the socket.
type inboundFrame struct {
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
}
