// Package server exposes the assistant to the chat UI over HTTP and WebSocket.
//
// Information Hiding:
// - Session lookup and expiry hidden behind Sessions
// - Request decoding and error mapping hidden
// - Route table and middleware order hidden
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/richinex/anko/agent"
	"github.com/richinex/anko/model"
	"github.com/richinex/anko/storage"
	"github.com/richinex/anko/tools"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server settings.
type Config struct {
	Listen      string
	IdleTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	config   Config
	sessions *Sessions
	registry *tools.Registry
	designs  *storage.DesignStore
	db       Pinger
	logger   *slog.Logger
	upgrader websocket.Upgrader
	server   *http.Server
}

// New creates a server for a. designs and db may be nil, which disables
// the design endpoints and the database health check.
func New(cfg Config, a *agent.Agent, designs *storage.DesignStore, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   cfg,
		sessions: NewSessions(a, cfg.IdleTimeout),
		registry: a.Registry(),
		designs:  designs,
		db:       db,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Sessions returns the live session table.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Handler returns the traced route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/tools", s.handleTools)

	mux.HandleFunc("GET /api/designs", s.handleDesignList)
	mux.HandleFunc("POST /api/designs", s.handleDesignSubmit)
	mux.HandleFunc("POST /api/designs/{id}/decision", s.handleDesignDecision)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return otelhttp.NewHandler(s.withLogging(mux), "anko.api")
}

// Start serves until ctx is cancelled, then shuts down gracefully and
// closes every session.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "address", s.config.Listen)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.sessions.CloseAll()
		return err
	case <-ctx.Done():
	}

	s.sessions.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	if s.config.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sessions.Sweep(now); n > 0 {
				s.logger.Info("closed idle sessions", "count", n)
			}
		}
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}

// ChatRequest is one user message. An empty SessionID starts a new session.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the assistant's answer to one message.
type ChatResponse struct {
	SessionID string           `json:"session_id"`
	Message   string           `json:"message"`
	State     agent.State      `json:"state"`
	ToolCalls []model.ToolCall `json:"tool_calls,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, code := s.respond(r.Context(), req)
	if code != http.StatusOK {
		s.errorResponse(w, code, resp.Message)
		return
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}

// respond runs one turn. Failed turns are still answered with their
// fallback; only cancelled turns produce an error status.
func (s *Server) respond(ctx context.Context, req ChatRequest) (ChatResponse, int) {
	session := s.sessions.Open(req.SessionID)
	result := session.Run(ctx, req.Message)

	if result.Cancelled {
		if errors.Is(result.Err, agent.ErrSessionClosed) {
			return ChatResponse{SessionID: session.ID(), Message: "session closed"}, http.StatusConflict
		}
		return ChatResponse{SessionID: session.ID(), Message: "request cancelled"}, http.StatusServiceUnavailable
	}
	if result.Err != nil {
		s.logger.Warn("turn failed", "session", session.ID(), "error", result.Err)
	}
	return ChatResponse{
		SessionID: session.ID(),
		Message:   result.Answer,
		State:     result.State,
		ToolCalls: result.ToolCalls,
	}, http.StatusOK
}

// wsWriteWait bounds each frame written to a WebSocket client.
const wsWriteWait = 10 * time.Second

// handleWebSocket answers chat frames on one connection. Frames are read on
// their own goroutine so a client that goes away cancels the turn in flight.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan ChatRequest)
	go func() {
		defer cancel()
		defer close(frames)
		for {
			var req ChatRequest
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("websocket read failed", "error", err)
				}
				return
			}
			select {
			case frames <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	sessionID := r.URL.Query().Get("session_id")
	for req := range frames {
		if req.SessionID == "" {
			req.SessionID = sessionID
		}
		if req.Message == "" {
			continue
		}

		resp, code := s.respond(ctx, req)
		sessionID = resp.SessionID
		if ctx.Err() != nil {
			s.logger.Debug("websocket client gone", "session", sessionID)
			return
		}
		if code != http.StatusOK {
			_ = s.writeFrame(conn, map[string]any{"session_id": resp.SessionID, "error": resp.Message})
			return
		}
		if err := s.writeFrame(conn, resp); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// HistoryResponse lists a session's turns, oldest first.
type HistoryResponse struct {
	SessionID string       `json:"session_id"`
	Turns     []model.Turn `json:"turns"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, ok := s.sessions.Get(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, Turns: session.History()}, s.logger)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		s.errorResponse(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.Describe()}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()}, s.logger)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "sessions": s.sessions.Len()}, s.logger)
}
