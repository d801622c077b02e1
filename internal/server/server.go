package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christopherjohns/chatrelay/internal/chat"
	"github.com/christopherjohns/chatrelay/internal/config"
	"github.com/christopherjohns/chatrelay/internal/metrics"
	"github.com/christopherjohns/chatrelay/internal/moderation"
	"github.com/christopherjohns/chatrelay/internal/user"
	"github.com/christopherjohns/chatrelay/internal/ws"
	"github.com/rs/cors"
	"github.com/samber/lo"
)

// requestEvents bounds the event label on request metrics.
var requestEvents = []string{ws.TypeJoin, ws.TypeSendMessage, ws.TypeSendLocation}

// Server is the main HTTP server for the chat relay.
type Server struct {
	cfg     config.Config
	log     *slog.Logger
	mux     *http.ServeMux
	users   *user.Registry
	chat    *chat.Service
	hub     *ws.Hub
	metrics *metrics.Metrics
}

// New wires the relay components described by cfg.
func New(cfg config.Config, log *slog.Logger) (*Server, error) {
	words := cfg.ProfanityWords
	if len(words) == 0 {
		words = moderation.DefaultWords
	}
	mod, err := moderation.NewModerator(words, log)
	if err != nil {
		return nil, fmt.Errorf("profanity filter: %w", err)
	}

	conns := ws.NewConnManager(log,
		ws.WithMaxConns(cfg.MaxConns),
		ws.WithIdleTimeout(cfg.IdleTimeout),
		ws.WithSendBufferSize(cfg.SendBufferSize),
		ws.WithWriteTimeout(cfg.WriteTimeout),
	)
	hub := ws.NewHub(log, conns)
	users := user.NewRegistry()

	s := &Server{
		cfg:   cfg,
		log:   log,
		mux:   http.NewServeMux(),
		users: users,
		chat:  chat.NewService(users, hub, log, chat.WithProfanityCheck(mod.IsProfane)),
		hub:   hub,
	}
	s.metrics = metrics.New(metrics.Gauges{
		Connections: conns.Count,
		Users:       users.Count,
		Rooms:       func() int { return len(users.Rooms()) },
	})
	hub.SetOnBroadcast(s.metrics.ObserveBroadcast)

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	wsHandler := ws.NewHandler(s.hub, s.chat, s.log,
		ws.WithJoinTimeout(s.cfg.JoinTimeout),
		ws.WithOriginPatterns(originHosts(s.cfg.AllowedOrigins)),
		ws.WithRequestObserver(s.observeRequest),
	)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("GET /api/rooms/{room}/users", s.handleRoomUsers)
	s.mux.HandleFunc("GET /api/connections", s.handleConnections)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.Handle("GET /ws", wsHandler)

	if s.cfg.StaticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
}

// Handler returns the routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(s.mux)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes every
// WebSocket and drains HTTP requests within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting chat relay", "addr", ln.Addr().String(), "env", s.cfg.AppEnv)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down chat relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by http.Server.
	s.hub.ConnMgr().Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// originHosts turns CORS origins into WebSocket host patterns. The upgrade
// check matches the Origin host only, so the scheme is dropped; bare hosts
// and globs pass through.
func originHosts(origins []string) []string {
	return lo.Map(origins, func(o string, _ int) string {
		if !strings.Contains(o, "://") {
			return o
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			return o
		}
		return u.Host
	})
}

func (s *Server) observeRequest(event string, err error) {
	if !lo.Contains(requestEvents, event) {
		event = "unknown"
	}
	s.metrics.ObserveRequest(event, chat.ErrorCode(err))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.users.Rooms())
}

func (s *Server) handleRoomUsers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.chat.Roster(r.PathValue("room")))
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	conns := s.hub.ConnMgr()
	s.writeJSON(w, struct {
		Stats   ws.ConnStats  `json:"stats"`
		Clients []ws.ConnInfo `json:"clients"`
	}{conns.Stats(), conns.Clients()})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("Failed to write response", "err", err)
	}
}
