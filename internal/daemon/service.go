// Package daemon follows Power.log in the background, feeds every line to a
// recording session and serves the local API.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/api"
	"github.com/ramonehamilton/BG-Companion/internal/api/handlers"
	"github.com/ramonehamilton/BG-Companion/internal/api/websocket"
	"github.com/ramonehamilton/BG-Companion/internal/events"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/powerlog"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/metrics"
	"github.com/ramonehamilton/BG-Companion/internal/version"
)

// Deps are the components the service drives. Session is required.
type Deps struct {
	Session    *recorder.Session
	Live       *LiveState
	Matches    handlers.MatchStore
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Dispatcher *events.EventDispatcher
	Logger     *zap.Logger
}

// Service represents the daemon service that runs continuously.
type Service struct {
	config  *Config
	session *recorder.Session
	live    *LiveState
	server  *api.Server
	poller  *powerlog.Poller
	log     *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
	logPath   string
	latency   *metrics.Histogram

	// Health tracking
	healthMu       sync.RWMutex
	lastLogRead    time.Time
	totalProcessed int64
	totalErrors    int64
}

// New creates a new daemon service.
func New(config *Config, deps Deps) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		config:  config,
		session: deps.Session,
		live:    deps.Live,
		log:     logger.Named("daemon"),
		ctx:     ctx,
		cancel:  cancel,
		latency: metrics.NewHistogram(1000),
	}

	apiDeps := api.Deps{
		Metrics:  deps.Metrics,
		Gatherer: deps.Gatherer,
		Health:   s.health,
		Logger:   logger,
	}
	if deps.Session != nil {
		apiDeps.Session = deps.Session
	}
	if deps.Matches != nil {
		apiDeps.Matches = deps.Matches
	}
	s.server = api.NewServer(&api.Config{
		Port:           config.Port,
		AllowedOrigins: config.AllowedOrigins,
		FeedRateLimit:  config.FeedRateLimit,
		FeedBurst:      max(1, int(2*config.FeedRateLimit)),
	}, apiDeps)

	if s.live != nil {
		s.server.WebSocketHub().Handle("game:state", s.handleGameState)
	}
	if deps.Dispatcher != nil && config.ServeAPI {
		deps.Dispatcher.Register(s.server.NewWebSocketObserver())
	}
	return s
}

// handleGameState replaces the live game view with a game:state frame.
func (s *Service) handleGameState(data json.RawMessage) error {
	var msg GameStateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode game:state: %w", err)
	}
	return s.live.Update(msg)
}

// Start starts the daemon service.
func (s *Service) Start() error {
	if s.session == nil {
		return fmt.Errorf("daemon requires a session")
	}
	s.startTime = time.Now()

	logPath := s.config.LogPath
	if logPath == "" {
		detected, err := powerlog.DefaultLogPath()
		if err != nil {
			return fmt.Errorf("failed to detect log path: %w", err)
		}
		logPath = detected
		s.log.Info("auto-detected log path", zap.String("path", logPath))
	}
	s.logPath = logPath

	pollerConfig := powerlog.DefaultPollerConfig(logPath)
	pollerConfig.Interval = s.config.PollInterval
	pollerConfig.UseFileEvents = s.config.UseFSNotify
	pollerConfig.ReadFromStart = s.config.ReadFromStart
	pollerConfig.Logger = s.log

	poller, err := powerlog.NewPoller(pollerConfig)
	if err != nil {
		return fmt.Errorf("failed to create log poller: %w", err)
	}
	s.poller = poller

	if s.config.ServeAPI {
		if err := s.server.Start(); err != nil {
			return err
		}
	}

	updates := s.poller.Start()

	s.log.Info("daemon started",
		zap.String("log_path", logPath),
		zap.Bool("api", s.config.ServeAPI),
		zap.String("addr", s.server.Addr()))

	s.broadcast("daemon:status", map[string]any{
		"status":  "running",
		"port":    s.config.Port,
		"logPath": logPath,
	})

	s.wg.Add(2)
	go s.processUpdates(updates, s.poller.Errors())
	go s.sendPeriodicStatus()
	return nil
}

// Stop stops following the log, drains the lines already read, hands any
// open match to the sink and shuts the API down.
func (s *Service) Stop() error {
	s.log.Info("stopping daemon")

	if s.poller != nil {
		s.poller.Stop()
	}
	s.cancel()
	s.wg.Wait()

	if s.session != nil {
		s.session.Flush()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}

	s.log.Info("daemon stopped")
	return nil
}

// processUpdates feeds log lines to the session until the poller closes the
// updates channel.
func (s *Service) processUpdates(updates <-chan *powerlog.LogEntry, errChan <-chan error) {
	defer s.wg.Done()

	for {
		select {
		case entry, ok := <-updates:
			if !ok {
				return
			}
			start := time.Now()
			s.session.ProcessLine(entry.Raw)
			s.latency.Record(time.Since(start))

			s.healthMu.Lock()
			s.lastLogRead = time.Now()
			s.totalProcessed++
			s.healthMu.Unlock()
		case err := <-errChan:
			s.log.Warn("poller error", zap.Error(err))

			s.healthMu.Lock()
			s.totalErrors++
			s.healthMu.Unlock()

			s.broadcast("daemon:error", map[string]any{"error": err.Error()})
		}
	}
}

// sendPeriodicStatus sends periodic status updates to clients.
func (s *Service) sendPeriodicStatus() {
	defer s.wg.Done()
	if s.config.StatusInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			st := s.session.Snapshot()
			s.broadcast("daemon:status", map[string]any{
				"status":      "running",
				"uptime":      s.GetUptime(),
				"clients":     s.GetClientCount(),
				"inMatch":     st.InMatch,
				"combatPhase": st.CombatPhase,
			})
		}
	}
}

func (s *Service) broadcast(eventType string, data any) {
	if !s.config.ServeAPI {
		return
	}
	s.server.WebSocketHub().BroadcastEvent(websocket.Event{Type: eventType, Data: data})
}

// Addr returns the API's bound address, or "" when it is not serving.
func (s *Service) Addr() string {
	return s.server.Addr()
}

// GetUptime returns the daemon uptime in seconds.
func (s *Service) GetUptime() float64 {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime).Seconds()
}

// GetClientCount returns the number of connected WebSocket clients.
func (s *Service) GetClientCount() int {
	return s.server.WebSocketHub().ClientCount()
}

// HealthStatus represents the health status of the daemon.
type HealthStatus struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	Uptime     float64          `json:"uptime"`
	LogMonitor LogMonitorHealth `json:"logMonitor"`
	WebSocket  WebSocketHealth  `json:"websocket"`
	Recorder   RecorderHealth   `json:"recorder"`
	Metrics    HealthMetrics    `json:"metrics"`
}

// LogMonitorHealth represents log monitor health status.
type LogMonitorHealth struct {
	Status   string `json:"status"`
	Path     string `json:"path,omitempty"`
	LastRead string `json:"lastRead,omitempty"`
}

// WebSocketHealth represents WebSocket server health status.
type WebSocketHealth struct {
	Status           string `json:"status"`
	ConnectedClients int    `json:"connectedClients"`
}

// RecorderHealth summarizes the recording session.
type RecorderHealth struct {
	InMatch     bool   `json:"inMatch"`
	MatchID     string `json:"matchId,omitempty"`
	Turn        int    `json:"turn"`
	CombatPhase string `json:"combatPhase"`
}

// HealthMetrics represents daemon performance metrics.
type HealthMetrics struct {
	TotalProcessed int64 `json:"totalProcessed"`
	TotalErrors    int64 `json:"totalErrors"`
	LineP50Micros  int64 `json:"lineP50Micros"`
	LineP99Micros  int64 `json:"lineP99Micros"`
}

// GetHealth returns the current health status of the daemon.
func (s *Service) GetHealth() *HealthStatus {
	s.healthMu.RLock()
	lastRead, processed, errs := s.lastLogRead, s.totalProcessed, s.totalErrors
	s.healthMu.RUnlock()

	status := &HealthStatus{
		Status:  "healthy",
		Version: version.Version,
		Uptime:  s.GetUptime(),
		LogMonitor: LogMonitorHealth{
			Status: "ok",
			Path:   s.logPath,
		},
		WebSocket: WebSocketHealth{
			Status:           "ok",
			ConnectedClients: s.GetClientCount(),
		},
		Metrics: HealthMetrics{
			TotalProcessed: processed,
			TotalErrors:    errs,
			LineP50Micros:  s.latency.Percentile(50).Microseconds(),
			LineP99Micros:  s.latency.Percentile(99).Microseconds(),
		},
	}
	if s.session != nil {
		st := s.session.Snapshot()
		status.Recorder = RecorderHealth{
			InMatch:     st.InMatch,
			MatchID:     st.MatchID,
			Turn:        st.Turn,
			CombatPhase: st.CombatPhase,
		}
	}

	if !lastRead.IsZero() {
		status.LogMonitor.LastRead = lastRead.Format(time.RFC3339)
	}

	// Quiet logs are normal between games but not during one.
	if status.Recorder.InMatch && !lastRead.IsZero() && time.Since(lastRead) > 5*time.Minute {
		status.LogMonitor.Status = "warning"
		status.Status = "degraded"
	}

	if processed > 0 && float64(errs)/float64(processed) > 0.1 {
		status.Status = "degraded"
	}

	return status
}

func (s *Service) health() (bool, any) {
	h := s.GetHealth()
	return h.Status == "healthy", h
}
