package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Recorder RecorderConfig `toml:"recorder"`
	Output   OutputConfig   `toml:"output"`
	Daemon   DaemonConfig   `toml:"daemon"`
	Cards    CardsConfig    `toml:"cards"`
}

// LogConfig contains Power.log monitoring settings.
type LogConfig struct {
	FilePath      string `toml:"file_path"`       // Path to Power.log; empty finds the default location
	PollInterval  string `toml:"poll_interval"`   // Polling interval (e.g., "500ms")
	UseFsnotify   bool   `toml:"use_fsnotify"`    // Use file system events
	ReadFromStart bool   `toml:"read_from_start"` // Process existing content on start
}

// RecorderConfig holds the recording toggles.
type RecorderConfig struct {
	RecordShopEvents bool   `toml:"record_shop_events"`
	SaveRawBlocks    bool   `toml:"save_raw_blocks"`
	KeepDebugLogs    bool   `toml:"keep_debug_logs"`
	DebugLogPath     string `toml:"debug_log_path"`
	MaxRawBlocks     int    `toml:"max_raw_blocks"` // 0 = unlimited
}

// OutputConfig selects where finished matches go.
type OutputConfig struct {
	Directory   string `toml:"directory"`    // JSON match files
	WriteCSV    bool   `toml:"write_csv"`    // Per-turn CSV next to each JSON file
	SQLitePath  string `toml:"sqlite_path"`  // Empty disables SQLite
	PostgresDSN string `toml:"postgres_dsn"` // Empty disables PostgreSQL
}

// DaemonConfig holds the local HTTP and websocket server settings.
type DaemonConfig struct {
	Enabled        bool     `toml:"enabled"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	FeedRateLimit  float64  `toml:"feed_rate_limit"` // Inbound messages per second per connection
}

// CardsConfig points at the card database.
type CardsConfig struct {
	DatabasePath string `toml:"database_path"` // HearthstoneJSON cards.json
}

// Environment overrides applied by ApplyEnv.
const (
	EnvLogPath     = "BGC_LOG_PATH"
	EnvOutputDir   = "BGC_OUTPUT_DIR"
	EnvSQLitePath  = "BGC_SQLITE_PATH"
	EnvPostgresDSN = "BGC_POSTGRES_DSN"
	EnvDaemonPort  = "BGC_DAEMON_PORT"
	EnvCardsPath   = "BGC_CARDS_PATH"
)

// DefaultConfig returns the default configuration rooted at the
// application directory.
func DefaultConfig() *Config {
	dir := appDir()
	return &Config{
		Log: LogConfig{
			PollInterval: "500ms",
			UseFsnotify:  true,
		},
		Recorder: RecorderConfig{
			RecordShopEvents: true,
			SaveRawBlocks:    true,
			DebugLogPath:     filepath.Join(dir, "debug.log"),
		},
		Output: OutputConfig{
			Directory:  filepath.Join(dir, "records"),
			SQLitePath: filepath.Join(dir, "matches.db"),
		},
		Daemon: DaemonConfig{
			Enabled:        true,
			Port:           9998,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			FeedRateLimit:  20,
		},
	}
}

func appDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bg-companion"
	}
	return filepath.Join(home, ".bg-companion")
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return filepath.Join(appDir(), "config.toml")
}

// Load reads the configuration at path, falling back to the defaults when
// the file does not exist. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment without replacing variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from BGC_* environment variables.
func (c *Config) ApplyEnv() error {
	overrides := map[string]*string{
		EnvLogPath:     &c.Log.FilePath,
		EnvOutputDir:   &c.Output.Directory,
		EnvSQLitePath:  &c.Output.SQLitePath,
		EnvPostgresDSN: &c.Output.PostgresDSN,
		EnvCardsPath:   &c.Cards.DatabasePath,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}
	if v, ok := os.LookupEnv(EnvDaemonPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDaemonPort, v, err)
		}
		c.Daemon.Port = port
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	interval, err := time.ParseDuration(c.Log.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", c.Log.PollInterval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive: %s", c.Log.PollInterval)
	}

	if c.Recorder.MaxRawBlocks < 0 {
		return fmt.Errorf("max raw blocks cannot be negative: %d", c.Recorder.MaxRawBlocks)
	}
	if c.Recorder.KeepDebugLogs && c.Recorder.DebugLogPath == "" {
		return fmt.Errorf("debug_log_path is required when keep_debug_logs is set")
	}

	if c.Output.Directory == "" && c.Output.SQLitePath == "" && c.Output.PostgresDSN == "" {
		return fmt.Errorf("at least one output (directory, sqlite_path, postgres_dsn) must be set")
	}

	if c.Daemon.Enabled {
		if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
			return fmt.Errorf("invalid daemon port: %d", c.Daemon.Port)
		}
		if c.Daemon.FeedRateLimit < 0 {
			return fmt.Errorf("feed rate limit cannot be negative: %v", c.Daemon.FeedRateLimit)
		}
	}
	return nil
}

// GetLogPollInterval returns the log poll interval as a duration.
func (c *Config) GetLogPollInterval() (time.Duration, error) {
	return time.ParseDuration(c.Log.PollInterval)
}
