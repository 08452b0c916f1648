package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-hub/internal/connection"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// Message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels a client can subscribe to.
const (
	ChannelPropertyState  = "property.state_changed"
	ChannelConnection     = "device.connection_changed"
	ChannelConnectorState = "connector.connection_changed"
)

const wsSendBufferSize = 256

// PropertyStateEvent is broadcast after a property state was saved.
type PropertyStateEvent struct {
	Entity     property.EntityKind `json:"entity"`
	OwnerID    string              `json:"owner_id"`
	PropertyID string              `json:"property_id"`
	Identifier string              `json:"identifier"`
	State      *property.State     `json:"state"`
}

// ConnectionEvent is broadcast after a device or connector changed state.
type ConnectionEvent struct {
	Entity  property.EntityKind `json:"entity"`
	OwnerID string              `json:"owner_id"`
	State   connection.State    `json:"state"`
}

// WSMessage is the envelope of every frame exchanged with a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload selects event channels. Owners optionally narrows
// events to the listed connector, device or channel ids.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
	Owners   []string `json:"owners,omitempty"`
}

type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans state and connection changes out to websocket clients.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
	owners   map[string]struct{}
	dropped  int
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by corsMiddleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub. Call Run to tie its lifetime to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{cfg: cfg, logger: logger, clients: make(map[*wsClient]struct{})}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// unregister removes c. Only the caller that removes it closes send.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Broadcast sends payload to the clients subscribed to channel whose owner
// filter admits ownerID.
func (h *Hub) Broadcast(channel, ownerID string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("marshalling websocket event", "channel", channel, "error", err)
		return
	}

	// Sending happens under the read lock so Run and unregister cannot close
	// a send channel mid-broadcast.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.wants(channel, ownerID) {
			c.queue(data)
		}
	}
}

// PropertyChanged broadcasts a saved state. It has the shape of a state
// manager change hook.
func (h *Hub) PropertyChanged(_ context.Context, p property.Property, st *property.State) {
	d := p.Def()
	h.Broadcast(ChannelPropertyState, d.OwnerID, PropertyStateEvent{
		Entity:     d.Entity,
		OwnerID:    d.OwnerID,
		PropertyID: d.ID,
		Identifier: d.Identifier,
		State:      st,
	})
}

// ConnectionChanged broadcasts a connection transition. It has the shape of
// a connection utility transition hook.
func (h *Hub) ConnectionChanged(_ context.Context, entity property.EntityKind, ownerID string, st connection.State) {
	channel := ChannelConnection
	if entity == property.EntityConnector {
		channel = ChannelConnectorState
	}
	h.Broadcast(channel, ownerID, ConnectionEvent{Entity: entity, OwnerID: ownerID, State: st})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]struct{}),
		owners:   make(map[string]struct{}),
	}
	s.hub.register(c)

	go c.writeLoop()
	go c.readLoop()
}

func (c *wsClient) readLoop() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	cfg := c.hub.cfg
	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(deadline)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings, so any frame counts.
		_ = extend()
		c.handle(data)
	}
}

func (c *wsClient) writeLoop() {
	cfg := c.hub.cfg
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handle(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		if len(req.Payload) == 0 || json.Unmarshal(req.Payload, &sub) != nil {
			c.reply(req.ID, WSTypeError, errorPayload("invalid "+req.Type+" payload"))
			return
		}
		if req.Type == WSTypeSubscribe {
			c.subscribe(sub)
			c.reply(req.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels, "owners": sub.Owners})
		} else {
			c.unsubscribe(sub)
			c.reply(req.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
		}
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, errorPayload("unknown message type: "+req.Type))
	}
}

func (c *wsClient) subscribe(sub WSSubscribePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		c.channels[ch] = struct{}{}
	}
	for _, id := range sub.Owners {
		c.owners[id] = struct{}{}
	}
}

// unsubscribe drops channels and owner filters. Removing the last owner
// widens the client back to every owner.
func (c *wsClient) unsubscribe(sub WSSubscribePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		delete(c.channels, ch)
	}
	for _, id := range sub.Owners {
		delete(c.owners, id)
	}
}

func (c *wsClient) wants(channel, ownerID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[channel]; !ok {
		return false
	}
	if len(c.owners) == 0 {
		return true
	}
	_, ok := c.owners[ownerID]
	return ok
}

// queue hands data to the write loop, dropping it when the client is
// too slow to keep up. Callers hold the hub read lock.
func (c *wsClient) queue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.mu.Lock()
		c.dropped++
		n := c.dropped
		c.mu.Unlock()
		if n == 1 || n%100 == 0 {
			c.hub.logger.Warn("websocket client too slow, dropping events", "dropped", n)
		}
	}
}

func (c *wsClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; ok {
		c.queue(data)
	}
}

func errorPayload(msg string) map[string]string {
	return map[string]string{"message": msg}
}
