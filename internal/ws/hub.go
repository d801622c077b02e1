package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/christopherjohns/chatrelay/internal/chat"
	"nhooyr.io/websocket"
)

// Client represents a connected WebSocket.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	connID string
}

// NewClient wraps an accepted connection under the given connection id.
func NewClient(conn *websocket.Conn, connID string) *Client {
	return &Client{conn: conn, connID: connID}
}

// Hub routes events to clients. It implements chat.Broadcaster and keeps
// an explicit subscription table keyed by room.
type Hub struct {
	log   *slog.Logger
	conns *ConnManager

	mu          sync.RWMutex
	clients     map[string]*Client
	rooms       map[string]map[string]*Client
	onBroadcast func(event string, recipients int)
}

var _ chat.Broadcaster = (*Hub)(nil)

// NewHub creates a Hub delivering through conns.
func NewHub(log *slog.Logger, conns *ConnManager) *Hub {
	return &Hub{
		log:     log,
		conns:   conns,
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// ConnMgr returns the connection manager for this hub.
func (h *Hub) ConnMgr() *ConnManager {
	return h.conns
}

// SetOnBroadcast registers a callback invoked after every delivery with the
// event name and the number of clients it was queued for.
func (h *Hub) SetOnBroadcast(fn func(event string, recipients int)) {
	h.mu.Lock()
	h.onBroadcast = fn
	h.mu.Unlock()
}

// Register starts the client's write pump and makes it addressable by
// connection id. The returned context is cancelled when the client is
// removed or the server shuts down.
func (h *Hub) Register(c *Client) context.Context {
	ctx := h.conns.Add(c)
	if ctx.Err() != nil {
		return ctx
	}

	h.mu.Lock()
	h.clients[c.connID] = c
	h.mu.Unlock()
	return ctx
}

// Unregister drops the client from every room and stops its write pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.connID)
	for room, members := range h.rooms {
		if _, ok := members[c.connID]; ok {
			delete(members, c.connID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()

	h.conns.Remove(c)
}

// Subscribe adds a registered connection to a room's broadcast group.
// Unknown connections are ignored.
func (h *Hub) Subscribe(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		h.log.Warn("Subscribe for unknown connection", "conn_id", connID, "room", room)
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][connID] = c
}

// Unsubscribe removes a connection from a room's broadcast group.
func (h *Hub) Unsubscribe(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Emit sends an event to a single connection.
func (h *Hub) Emit(connID string, evt chat.Event) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(evt, []*Client{c})
}

// BroadcastOthers sends an event to every subscriber of room except one.
func (h *Hub) BroadcastOthers(room, exceptConnID string, evt chat.Event) {
	h.deliver(evt, h.targets(room, exceptConnID))
}

// BroadcastRoom sends an event to every subscriber of room.
func (h *Hub) BroadcastRoom(room string, evt chat.Event) {
	h.deliver(evt, h.targets(room, ""))
}

// SendFrame queues a pre-encoded frame for a single connection.
func (h *Hub) SendFrame(c *Client, frame []byte) bool {
	return h.conns.Send(c, frame)
}

// ClientCount returns the number of subscribers of a room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RoomCount returns the number of rooms with at least one subscriber.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// targets copies the subscriber set so the lock is released before sending.
func (h *Hub) targets(room, exceptConnID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[room]
	targets := make([]*Client, 0, len(members))
	for id, c := range members {
		if id != exceptConnID {
			targets = append(targets, c)
		}
	}
	return targets
}

func (h *Hub) deliver(evt chat.Event, targets []*Client) {
	frame, err := encode(string(evt.Name), evt.Payload)
	if err != nil {
		h.log.Error("Failed to encode event", "event", evt.Name, "err", err)
		return
	}

	sent := 0
	for _, c := range targets {
		if h.conns.Send(c, frame) {
			sent++
		}
	}

	h.mu.RLock()
	fn := h.onBroadcast
	h.mu.RUnlock()
	if fn != nil {
		fn(string(evt.Name), sent)
	}
}

// encode wraps payload in an Envelope.
func encode(typ string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Payload: data})
}
