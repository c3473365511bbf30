package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AzureManagedRedis/mcp-amr/pkg/auth"
	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

const (
	// serverName and serverVersion populate the initialize response's
	// serverInfo block.
	serverName    = "mcp-amr"
	serverVersion = "0.1.0"

	// maxMessageSize bounds a POST /message body.
	maxMessageSize = 1 << 20

	// sessionQueueSize is the per-session buffer of responses awaiting
	// SSE delivery.
	sessionQueueSize = 16
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the listen address.
	// Default: "0.0.0.0"
	// Environment variable: MCP_HOST
	Host string `json:"host" yaml:"host" env:"MCP_HOST" envDefault:"0.0.0.0"`

	// Port is the listen port.
	// Default: 8000
	// Environment variable: MCP_PORT
	Port int `json:"port" yaml:"port" env:"MCP_PORT" envDefault:"8000"`

	// KeepAliveInterval is how often an idle SSE connection receives a
	// keepalive comment.
	// Default: 15s
	// Environment variable: MCP_SSE_KEEPALIVE
	KeepAliveInterval time.Duration `json:"sse_keepalive" yaml:"sse_keepalive" env:"MCP_SSE_KEEPALIVE" envDefault:"15s"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	// Environment variable: MCP_SHUTDOWN_TIMEOUT
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"MCP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8000,
		KeepAliveInterval: 15 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Server routes MCP JSON-RPC traffic to registered tools behind the auth
// gateway. Construct with [NewServer], expose with [Server.Handler] or run
// with [Server.Serve].
type Server struct {
	cfg      Config
	gateway  *auth.Gateway
	registry *Registry
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]chan Response
}

// NewServer creates a server for the given gateway and tool registry.
// A nil logger falls back to slog.Default.
func NewServer(cfg Config, gw *auth.Gateway, registry *Registry, logger *slog.Logger) (*Server, error) {
	if gw == nil {
		return nil, amrerr.New(amrerr.CodeValidationRequired, "mcp: gateway is required")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg:      cfg,
		gateway:  gw,
		registry: registry,
		logger:   logger,
		sessions: make(map[string]chan Response),
	}, nil
}

// Handler returns the complete HTTP handler: health, SSE, and message
// endpoints, all wrapped in the authentication middleware. The gateway
// itself exempts the health path, so the probe passes in every mode.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /sse", s.handleSSE)
	mux.HandleFunc("POST /message", s.handleMessage)
	return auth.Middleware(s.gateway)(mux)
}

// Serve runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcp: server listening",
			"addr", srv.Addr,
			"tools", s.registry.Len(),
			"auth_mode", string(s.gateway.Mode()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mcp: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

// handleSSE establishes the event stream: a "session" event with the
// session ID, an "endpoint" event with the message URL, then queued
// "message" events interleaved with keepalive comments.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.NewString()
	queue := make(chan Response, sessionQueueSize)
	s.mu.Lock()
	s.sessions[sessionID] = queue
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		s.logger.InfoContext(r.Context(), "mcp: sse connection closed", "session", sessionID)
	}()

	s.logger.InfoContext(r.Context(), "mcp: new sse connection",
		"session", sessionID, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: session\ndata: %s\n\n", sessionID)
	fmt.Fprintf(w, "event: endpoint\ndata: /message?sessionId=%s\n\n", sessionID)
	flusher.Flush()

	ticker := time.NewTicker(s.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case resp := <-queue:
			data, err := json.Marshal(resp)
			if err != nil {
				s.logger.ErrorContext(r.Context(), "mcp: marshal sse message",
					"session", sessionID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// handleMessage receives a JSON-RPC request, dispatches it, and either
// returns the response directly or queues it on the caller's SSE session.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil || len(body) == 0 {
		writeResponse(w, http.StatusBadRequest,
			NewError(nil, CodeParseError, "parse error: empty or unreadable request body"))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, http.StatusBadRequest,
			NewError(nil, CodeParseError, "parse error: invalid JSON"))
		return
	}

	s.logger.InfoContext(ctx, "mcp: message received",
		"method", req.Method, "id", req.ID)

	// Notifications expect no response body.
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := s.dispatch(ctx, &req)

	// A known sessionId routes the response through the SSE stream.
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		s.mu.Lock()
		queue, ok := s.sessions[sessionID]
		s.mu.Unlock()
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "SSE session not found or expired",
			})
			return
		}
		select {
		case queue <- resp:
			w.WriteHeader(http.StatusAccepted)
		case <-ctx.Done():
			w.WriteHeader(http.StatusRequestTimeout)
		}
		return
	}

	writeResponse(w, http.StatusOK, resp)
}

// dispatch routes one JSON-RPC request to its method implementation.
func (s *Server) dispatch(ctx context.Context, req *Request) Response {
	switch req.Method {
	case "initialize":
		return NewResult(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
				"prompts":   map[string]any{},
			},
			ServerInfo: serverInfo{Name: serverName, Version: serverVersion},
		})

	case "ping":
		return NewResult(req.ID, map[string]any{})

	case "tools/list":
		return NewResult(req.ID, toolsListResult{Tools: s.registry.List()})

	case "tools/call":
		return s.callTool(ctx, req)

	default:
		return NewError(req.ID, CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method))
	}
}

// callTool executes a registered tool and shapes the result as MCP text
// content. Handler errors are logged in full server-side; the client sees
// only a generic execution failure.
func (s *Server) callTool(ctx context.Context, req *Request) Response {
	var params toolsCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, CodeInvalidParams, "invalid tools/call params")
		}
	}
	if params.Name == "" {
		return NewError(req.ID, CodeInvalidParams, "tool name is required")
	}

	result, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.ErrorContext(ctx, "mcp: tool execution failed",
			"tool", params.Name, "error", err)
		var amrErr *amrerr.Error
		if errors.As(err, &amrErr) && amrErr.Code == amrerr.CodeNotFoundTool {
			return NewError(req.ID, CodeToolExecution,
				fmt.Sprintf("tool not found: %s", params.Name))
		}
		return NewError(req.ID, CodeToolExecution,
			fmt.Sprintf("tool execution failed: %s", params.Name))
	}

	return NewResult(req.ID, toolsCallResult{Content: TextContent(result)})
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
