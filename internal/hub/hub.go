// Package hub fans typed events out to all connected observers over
// persistent WebSocket connections.
package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/logging"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/metrics"
)

// sendQueueSize bounds each observer's outbound queue. An observer that
// falls this far behind is dropped rather than allowed to stall others.
const sendQueueSize = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Local UI clients connect from arbitrary origins.
		return true
	},
}

// Hub maintains the observer registry and broadcasts envelopes. One
// instance is owned by the server; there is no ambient global.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
	nextID  uint64

	clearContext func()
	log          zerolog.Logger
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		log:     logging.WithComponent("hub"),
	}
}

// OnClearContext installs the callback invoked when an observer requests
// a context clear. Call once during wiring, before serving connections.
func (h *Hub) OnClearContext(fn func()) {
	h.clearContext = fn
}

// ServeWS upgrades the request and attaches the resulting connection as
// an observer.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.Attach(conn)
}

// Attach registers a connection and starts its pumps. Exposed separately
// from ServeWS so tests can attach fake connections.
func (h *Hub) Attach(conn Conn) *Client {
	c := &Client{
		ID:   fmt.Sprintf("observer-%d", atomic.AddUint64(&h.nextID, 1)),
		conn: conn,
		hub:  h,
		send: make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	metrics.Default.ObserversConnected.Set(float64(count))
	h.log.Info().Str("client", c.ID).Int("total", count).Msg("observer connected")

	// Welcome envelope goes only to the new observer.
	welcome, _ := json.Marshal(NewStatus("connected", map[string]any{
		"message": "Welcome to the transcription intelligence engine",
	}))
	h.sendTo(c, welcome)

	go c.writePump()
	go c.readPump()
	return c
}

// Unregister removes a client from the registry. Idempotent; safe to
// call from any pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()
	metrics.Default.ObserversConnected.Set(float64(count))
	h.log.Info().Str("client", c.ID).Int("total", count).Msg("observer disconnected")
}

// Broadcast serializes the envelope once and queues it for every
// registered observer. A full queue drops only that observer; ordering
// per observer follows broadcast call order.
func (h *Hub) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Str("type", env.Type).Msg("cannot marshal envelope")
		return
	}
	metrics.Default.BroadcastsTotal.Inc()

	h.mu.Lock()
	var slow []*Client
	for c := range h.clients {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.log.Warn().Str("client", c.ID).Msg("observer too slow, dropping")
		delete(h.clients, c)
		close(c.send)
		metrics.Default.BroadcastDrops.Inc()
	}
	count := len(h.clients)
	h.mu.Unlock()
	if len(slow) > 0 {
		metrics.Default.ObserversConnected.Set(float64(count))
	}
}

// ClientCount reports the number of registered observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// sendTo queues data for a single client while it is still registered.
// Holding the lock here prevents racing a concurrent Unregister.
func (h *Hub) sendTo(c *Client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	c.enqueue(data)
}

// handleControl reacts to a recognized inbound message; unknown types
// are logged and ignored.
func (h *Hub) handleControl(c *Client, msg inboundMessage) {
	switch msg.Type {
	case "ping":
		pong, _ := json.Marshal(Envelope{Type: TypePong})
		h.sendTo(c, pong)
	case "clear_context":
		h.log.Info().Str("client", c.ID).Msg("observer requested context clear")
		if h.clearContext != nil {
			h.clearContext()
		}
		h.Broadcast(NewStatus("context_cleared", nil))
	default:
		h.log.Warn().Str("client", c.ID).Str("type", msg.Type).Msg("unknown message type")
	}
}
