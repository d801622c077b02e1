package ws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const (
	// defaultSendBufferSize is the number of frames that can be queued per client.
	defaultSendBufferSize = 16

	// defaultWriteTimeout is the max time to wait for a single write to complete.
	defaultWriteTimeout = 5 * time.Second

	// idleCheckInterval is how often the idle reaper runs.
	idleCheckInterval = 30 * time.Second
)

// connEntry holds per-connection metadata alongside the cancel function.
type connEntry struct {
	cancel      context.CancelFunc
	connectedAt time.Time
	lastActive  time.Time
}

// ConnStats holds point-in-time connection statistics.
type ConnStats struct {
	Active          int   `json:"active"`
	MaxConns        int   `json:"max_conns"`
	Rejected        int64 `json:"rejected"`
	DroppedMessages int64 `json:"dropped_messages"`
	IdleReaped      int64 `json:"idle_reaped"`
}

// ConnManager tracks all active WebSocket connections and provides
// lifecycle management including graceful shutdown, per-client
// buffered send channels, connection limits, and idle detection.
type ConnManager struct {
	log          *slog.Logger
	mu           sync.Mutex
	clients      map[*Client]*connEntry
	closed       bool
	maxConns     int
	idleTTL      time.Duration
	bufferSize   int
	writeTimeout time.Duration
	reapEvery    time.Duration
	stopIdle     context.CancelFunc

	// Atomic counters for stats.
	rejected        atomic.Int64
	droppedMessages atomic.Int64
	idleReaped      atomic.Int64
}

// ConnManagerOption configures a ConnManager.
type ConnManagerOption func(*ConnManager)

// WithMaxConns sets the maximum number of concurrent connections.
// When the limit is reached, new connections are rejected.
// A value of 0 means unlimited (default).
func WithMaxConns(n int) ConnManagerOption {
	return func(cm *ConnManager) {
		cm.maxConns = n
	}
}

// WithIdleTimeout sets how long a connection can be idle before
// it is automatically closed. A value of 0 disables idle reaping (default).
func WithIdleTimeout(d time.Duration) ConnManagerOption {
	return func(cm *ConnManager) {
		cm.idleTTL = d
	}
}

// WithSendBufferSize sets the per-client outbound queue length.
func WithSendBufferSize(n int) ConnManagerOption {
	return func(cm *ConnManager) {
		if n > 0 {
			cm.bufferSize = n
		}
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) ConnManagerOption {
	return func(cm *ConnManager) {
		if d > 0 {
			cm.writeTimeout = d
		}
	}
}

// withReapInterval overrides idleCheckInterval in tests.
func withReapInterval(d time.Duration) ConnManagerOption {
	return func(cm *ConnManager) {
		cm.reapEvery = d
	}
}

// NewConnManager creates a new connection manager with optional configuration.
func NewConnManager(log *slog.Logger, opts ...ConnManagerOption) *ConnManager {
	cm := &ConnManager{
		log:          log,
		clients:      make(map[*Client]*connEntry),
		bufferSize:   defaultSendBufferSize,
		writeTimeout: defaultWriteTimeout,
		reapEvery:    idleCheckInterval,
	}
	for _, opt := range opts {
		opt(cm)
	}
	if cm.idleTTL > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		cm.stopIdle = cancel
		go cm.idleReapLoop(ctx)
	}
	return cm
}

// Add registers a client and starts its write pump. The returned
// context is cancelled when the client is removed or the manager
// shuts down. Callers should select on ctx.Done() in their read loop.
// Returns a cancelled context if the manager is closed or at capacity.
func (cm *ConnManager) Add(c *Client) context.Context {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.closed {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return cancelledContext()
	}

	if cm.maxConns > 0 && len(cm.clients) >= cm.maxConns {
		cm.rejected.Add(1)
		c.conn.Close(websocket.StatusTryAgainLater, "server at capacity")
		return cancelledContext()
	}

	now := time.Now()
	c.send = make(chan []byte, cm.bufferSize)
	ctx, cancel := context.WithCancel(context.Background())
	cm.clients[c] = &connEntry{
		cancel:      cancel,
		connectedAt: now,
		lastActive:  now,
	}

	go cm.writePump(ctx, c)

	return ctx
}

// Remove stops a client's write pump and cleans it up. Removing a client
// twice is a no-op.
func (cm *ConnManager) Remove(c *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	entry, ok := cm.clients[c]
	if !ok {
		return
	}
	delete(cm.clients, c)
	entry.cancel()
	close(c.send)
}

// Send queues a frame for delivery to the client. Returns false
// if the client's buffer is full (slow consumer) or the client has
// been removed.
func (cm *ConnManager) Send(c *Client, data []byte) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		cm.droppedMessages.Add(1)
		cm.log.Warn("Send buffer full, dropping frame", "conn_id", c.connID)
		return false
	}
}

// TouchActivity updates the last-active timestamp for a client.
// Call this when a client sends a frame to prevent idle reaping.
func (cm *ConnManager) TouchActivity(c *Client) {
	cm.mu.Lock()
	if entry, ok := cm.clients[c]; ok {
		entry.lastActive = time.Now()
	}
	cm.mu.Unlock()
}

// Count returns the number of active connections.
func (cm *ConnManager) Count() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.clients)
}

// Stats returns point-in-time connection statistics.
func (cm *ConnManager) Stats() ConnStats {
	cm.mu.Lock()
	active := len(cm.clients)
	maxConns := cm.maxConns
	cm.mu.Unlock()
	return ConnStats{
		Active:          active,
		MaxConns:        maxConns,
		Rejected:        cm.rejected.Load(),
		DroppedMessages: cm.droppedMessages.Load(),
		IdleReaped:      cm.idleReaped.Load(),
	}
}

// ConnInfo holds metadata about a single connection.
type ConnInfo struct {
	ConnID      string        `json:"conn_id"`
	ConnectedAt time.Time     `json:"connected_at"`
	LastActive  time.Time     `json:"last_active"`
	Idle        time.Duration `json:"idle"`
}

// Clients returns metadata for all active connections.
func (cm *ConnManager) Clients() []ConnInfo {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	now := time.Now()
	result := make([]ConnInfo, 0, len(cm.clients))
	for c, entry := range cm.clients {
		result = append(result, ConnInfo{
			ConnID:      c.connID,
			ConnectedAt: entry.connectedAt,
			LastActive:  entry.lastActive,
			Idle:        now.Sub(entry.lastActive),
		})
	}
	return result
}

// Shutdown gracefully closes all connections. It cancels every write
// pump and closes each WebSocket with StatusGoingAway.
func (cm *ConnManager) Shutdown() {
	cm.mu.Lock()
	cm.closed = true
	clients := cm.clients
	cm.clients = make(map[*Client]*connEntry)
	for c, entry := range clients {
		entry.cancel()
		close(c.send)
	}
	cm.mu.Unlock()

	if cm.stopIdle != nil {
		cm.stopIdle()
	}

	for c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// idleReapLoop periodically checks for and closes idle connections.
func (cm *ConnManager) idleReapLoop(ctx context.Context) {
	ticker := time.NewTicker(cm.reapEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cm.reapIdle()
		}
	}
}

// reapIdle closes connections that have been idle longer than idleTTL.
// Closing the socket ends the handler's read loop, which disconnects the
// session.
func (cm *ConnManager) reapIdle() {
	cm.mu.Lock()
	now := time.Now()
	var stale []*Client
	for c, entry := range cm.clients {
		if now.Sub(entry.lastActive) > cm.idleTTL {
			entry.cancel()
			close(c.send)
			delete(cm.clients, c)
			stale = append(stale, c)
		}
	}
	cm.mu.Unlock()

	for _, c := range stale {
		cm.idleReaped.Add(1)
		cm.log.Info("Reaping idle connection", "conn_id", c.connID)
		c.conn.Close(websocket.StatusPolicyViolation, "idle timeout")
	}
}

// writePump drains the client's send channel, writing each frame
// to the WebSocket connection. It exits when ctx is cancelled or the
// send channel is closed.
func (cm *ConnManager) writePump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, cm.writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				cm.log.Debug("Write failed, closing connection", "conn_id", c.connID, "err", err)
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
