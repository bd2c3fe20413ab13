package daemon

import (
	"time"

	"github.com/ramonehamilton/BG-Companion/internal/config"
)

// Config holds configuration for the daemon service.
type Config struct {
	// Power.log path (auto-detect if empty)
	LogPath string

	// Log poll interval
	PollInterval time.Duration

	// Enable file system events (fsnotify) for log watching
	UseFSNotify bool

	// Process the existing log content on start
	ReadFromStart bool

	// Serve the HTTP API and websocket
	ServeAPI bool

	// HTTP and websocket port
	Port int

	// Origins allowed for CORS and websocket upgrades
	AllowedOrigins []string

	// Inbound websocket frames per second per connection; 0 disables the limit
	FeedRateLimit float64

	// Interval between daemon:status broadcasts
	StatusInterval time.Duration

	// Time allowed for the HTTP server to drain on Stop
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogPath:         "", // Will auto-detect
		PollInterval:    500 * time.Millisecond,
		UseFSNotify:     true,
		ServeAPI:        true,
		Port:            9998,
		AllowedOrigins:  []string{"http://localhost:*", "http://127.0.0.1:*"},
		FeedRateLimit:   20,
		StatusInterval:  30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// ConfigFrom builds the daemon configuration from the application config.
func ConfigFrom(c *config.Config) (*Config, error) {
	interval, err := c.GetLogPollInterval()
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.LogPath = c.Log.FilePath
	cfg.PollInterval = interval
	cfg.UseFSNotify = c.Log.UseFsnotify
	cfg.ReadFromStart = c.Log.ReadFromStart
	cfg.ServeAPI = c.Daemon.Enabled
	cfg.Port = c.Daemon.Port
	cfg.FeedRateLimit = c.Daemon.FeedRateLimit
	if len(c.Daemon.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = c.Daemon.AllowedOrigins
	}
	return cfg, nil
}
