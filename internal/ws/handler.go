package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/christopherjohns/chatrelay/internal/chat"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// defaultJoinTimeout bounds the wait for the first frame.
const defaultJoinTimeout = 10 * time.Second

var (
	errInvalidPayload = errors.New("invalid payload")
	errMissingCoords  = errors.New("latitude and longitude are required")
	errUnknownType    = errors.New("unknown event type")
)

// RequestObserver is told the outcome of every inbound request.
type RequestObserver func(event string, err error)

// Handler handles WebSocket upgrade requests and client frame loops.
type Handler struct {
	hub         *Hub
	chat        *chat.Service
	log         *slog.Logger
	validate    *validator.Validate
	accept      *websocket.AcceptOptions
	joinTimeout time.Duration
	observe     RequestObserver
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithJoinTimeout sets how long a new connection may take to send its join.
func WithJoinTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.joinTimeout = d
		}
	}
}

// WithOriginPatterns restricts the Origin hosts allowed to connect. With no
// patterns every origin is accepted.
func WithOriginPatterns(patterns []string) HandlerOption {
	return func(h *Handler) {
		if len(patterns) > 0 {
			h.accept = &websocket.AcceptOptions{OriginPatterns: patterns}
		}
	}
}

// WithRequestObserver registers a callback for request outcomes.
func WithRequestObserver(fn RequestObserver) HandlerOption {
	return func(h *Handler) {
		h.observe = fn
	}
}

// NewHandler creates a new WebSocket Handler.
func NewHandler(hub *Hub, svc *chat.Service, log *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:         hub,
		chat:        svc,
		log:         log,
		validate:    validator.New(),
		accept:      &websocket.AcceptOptions{InsecureSkipVerify: true},
		joinTimeout: defaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the HTTP connection to a WebSocket and runs the
// read loop for the client.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.log.Warn("WebSocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	client := NewClient(conn, uuid.NewString())
	connCtx := h.hub.Register(client)
	if connCtx.Err() != nil {
		return
	}
	defer h.hub.Unregister(client)

	session := h.chat.Open(client.connID)
	defer session.Disconnect()

	// Reads stop when either the request or the connection manager ends.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(connCtx, cancel)
	defer stop()

	h.log.Debug("Connection opened", "conn_id", client.connID, "remote", r.RemoteAddr)

	if !h.handleJoin(ctx, client, session) {
		return
	}
	h.readLoop(ctx, client, session)

	h.log.Debug("Connection closed", "conn_id", client.connID)
}

// handleJoin reads the first frame, which must be a join. A rejected join, or
// any other request sent first, is acknowledged with its error and the
// connection is closed.
func (h *Handler) handleJoin(ctx context.Context, client *Client, session *chat.Session) bool {
	joinCtx, cancel := context.WithTimeout(ctx, h.joinTimeout)
	defer cancel()

	_, data, err := client.conn.Read(joinCtx)
	if err != nil {
		h.log.Debug("Read join failed", "conn_id", client.connID, "err", err)
		return false
	}
	h.hub.ConnMgr().TouchActivity(client)

	env, err := h.decode(data)
	if err != nil {
		closeWithError(client.conn, "invalid JSON")
		return false
	}
	if env.Type != TypeJoin {
		h.report(env.Type, chat.ErrNotJoined)
		h.writeAck(ctx, client, env.ID, chat.ErrNotJoined)
		closeWithError(client.conn, "first message must be type 'join'")
		return false
	}

	err = h.join(env, session)
	h.report(TypeJoin, err)
	if err != nil {
		h.writeAck(ctx, client, env.ID, err)
		closeWithError(client.conn, err.Error())
		return false
	}
	h.ack(client, env.ID, nil)
	return true
}

// readLoop reads frames until the connection closes. Every decoded request
// is settled by exactly one ack.
func (h *Handler) readLoop(ctx context.Context, client *Client, session *chat.Session) {
	for {
		_, data, err := client.conn.Read(ctx)
		if err != nil {
			return
		}

		// Mark activity so idle reaping doesn't close active connections.
		h.hub.ConnMgr().TouchActivity(client)

		env, err := h.decode(data)
		if err != nil {
			h.log.Debug("Dropping malformed frame", "conn_id", client.connID, "err", err)
			continue
		}

		err = h.dispatch(env, session)
		h.report(env.Type, err)

		if errors.Is(err, chat.ErrInternalConsistency) {
			h.writeAck(ctx, client, env.ID, err)
			closeWithError(client.conn, "session lost")
			return
		}
		h.ack(client, env.ID, err)
	}
}

func (h *Handler) dispatch(env Envelope, session *chat.Session) error {
	switch env.Type {
	case TypeJoin:
		return h.join(env, session)
	case TypeSendMessage:
		var payload ChatPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.SendMessage(payload.Text)
	case TypeSendLocation:
		var payload LocationPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		if err := h.validate.Struct(payload); err != nil {
			return errMissingCoords
		}
		return session.SendLocation(payload.Coords())
	default:
		return fmt.Errorf("%w: %q", errUnknownType, env.Type)
	}
}

func (h *Handler) join(env Envelope, session *chat.Session) error {
	var payload JoinPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return errInvalidPayload
	}
	return session.Join(payload.Username, payload.Room)
}

func (h *Handler) decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if err := h.validate.Struct(env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (h *Handler) report(event string, err error) {
	if err != nil {
		h.log.Debug("Request failed", "event", event, "code", chat.ErrorCode(err), "err", err)
	}
	if h.observe != nil {
		h.observe(event, err)
	}
}

// ack queues the acknowledgement behind any events the request produced.
func (h *Handler) ack(client *Client, id int64, err error) {
	frame, encErr := encode(TypeAck, ackPayload(id, err))
	if encErr != nil {
		h.log.Error("Failed to encode ack", "conn_id", client.connID, "err", encErr)
		return
	}
	h.hub.SendFrame(client, frame)
}

// writeAck writes the acknowledgement synchronously, for use right before
// the connection is closed.
func (h *Handler) writeAck(ctx context.Context, client *Client, id int64, err error) {
	frame, encErr := encode(TypeAck, ackPayload(id, err))
	if encErr != nil {
		h.log.Error("Failed to encode ack", "conn_id", client.connID, "err", encErr)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	if err := client.conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
		h.log.Debug("Failed to write ack", "conn_id", client.connID, "err", err)
	}
}

func ackPayload(id int64, err error) AckPayload {
	ack := AckPayload{ID: id}
	if err != nil {
		ack.Error = err.Error()
	}
	return ack
}

func closeWithError(conn *websocket.Conn, reason string) {
	conn.Close(websocket.StatusPolicyViolation, reason)
}
