package hub

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// Conn is the subset of a websocket connection the hub needs. A real
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected observer.
type Client struct {
	ID   string
	conn Conn
	hub  *Hub
	send chan []byte
}

// inboundMessage is what observers may send us.
type inboundMessage struct {
	Type string `json:"type"`
}

// writePump delivers queued envelopes to the connection in order. A
// write failure unregisters only this client.
func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.log.Warn().Err(err).Str("client", c.ID).Msg("observer write failed")
			c.hub.Unregister(c)
			return
		}
	}
}

// readPump handles inbound control messages until the connection drops.
func (c *Client) readPump() {
	defer c.hub.Unregister(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.log.Warn().Str("client", c.ID).Msg("invalid JSON from observer")
			continue
		}
		c.hub.handleControl(c, msg)
	}
}

// enqueue places a serialized envelope on the client's send queue.
// Returns false when the queue is full (slow consumer).
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
