// Package api serves the local HTTP API: session and match queries, the
// Prometheus endpoint and the websocket used by overlays and board watchers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/api/handlers"
	"github.com/ramonehamilton/BG-Companion/internal/api/websocket"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	listener   net.Listener
	port       int
	origins    []string

	wsHub *websocket.Hub
	deps  Deps
	log   *zap.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Port           int
	AllowedOrigins []string // CORS and websocket origin patterns
	FeedRateLimit  float64  // Inbound websocket frames per second per client
	FeedBurst      int
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           9998,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		FeedRateLimit:  20,
		FeedBurst:      40,
	}
}

// HealthFunc reports daemon health for GET /health.
type HealthFunc func() (healthy bool, body any)

// Deps are the components the routes read from. Session is required; the
// match routes are mounted only with Matches and /metrics only with
// Gatherer.
type Deps struct {
	Session  handlers.Session
	Matches  handlers.MatchStore
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   HealthFunc
	Logger   *zap.Logger
}

// NewServer creates a new API server.
func NewServer(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:  chi.NewRouter(),
		port:    cfg.Port,
		origins: cfg.AllowedOrigins,
		deps:    deps,
		log:     logger.Named("api"),
		wsHub: websocket.NewHub(websocket.Config{
			AllowedOrigins: cfg.AllowedOrigins,
			RateLimit:      cfg.FeedRateLimit,
			Burst:          cfg.FeedBurst,
			Logger:         logger,
			Metrics:        deps.Metrics,
		}),
	}

	if deps.Session != nil {
		s.wsHub.Handle("board:opponent", s.handleBoardFrame)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// requestLogger logs each request at Debug level.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handleBoardFrame applies a board:opponent websocket frame.
func (s *Server) handleBoardFrame(data json.RawMessage) error {
	var req handlers.BoardRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode board:opponent: %w", err)
	}
	s.deps.Session.UpdateOpponentBoard(req.BoardCards)
	return nil
}

// Start binds the port and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}
	s.listener = ln

	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.log.Info("api server listening", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the hub and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// WebSocketHub returns the WebSocket hub for registering inbound handlers.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

// NewWebSocketObserver creates an observer that forwards dispatched events
// to WebSocket clients.
func (s *Server) NewWebSocketObserver() *websocket.WebSocketObserver {
	return websocket.NewWebSocketObserver(s.wsHub)
}

var _ handlers.Session = (*recorder.Session)(nil)
