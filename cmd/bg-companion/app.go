package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/config"
	"github.com/ramonehamilton/BG-Companion/internal/events"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/carddb"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/metrics"
	"github.com/ramonehamilton/BG-Companion/internal/output"
	"github.com/ramonehamilton/BG-Companion/internal/storage"
	"github.com/ramonehamilton/BG-Companion/internal/storage/postgres"
)

// app holds what every recording command needs: configuration, logging,
// metrics, events and the match sinks.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	dispatcher *events.EventDispatcher
	cards      carddb.Database
	db         *storage.DB
	matches    *storage.MatchStore
	sink       recorder.MultiSink

	closers []func()
}

// loadConfig reads the config file, the env file and BGC_* overrides.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp loads the configuration and opens every configured sink.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	debugPath := ""
	if cfg.Recorder.KeepDebugLogs {
		debugPath = cfg.Recorder.DebugLogPath
	}
	logger, syncLog, err := newLogger(logLevel, logFormat, debugPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		log:        logger,
		registry:   prometheus.NewRegistry(),
		dispatcher: events.NewEventDispatcher(logger),
		cards:      carddb.Empty{},
		closers:    []func(){syncLog},
	}
	a.metrics = metrics.New(a.registry)
	a.dispatcher.Register(events.NewLoggingObserver(logger.Named("events"), cfg.Recorder.KeepDebugLogs))

	if err := a.openSinks(ctx); err != nil {
		a.close()
		return nil, err
	}

	if path := cfg.Cards.DatabasePath; path != "" {
		catalog, err := carddb.LoadFile(path)
		if err != nil {
			a.close()
			return nil, err
		}
		a.cards = catalog
		logger.Info("card database loaded", zap.String("path", path), zap.Int("cards", catalog.Len()))
	}
	return a, nil
}

func (a *app) openSinks(ctx context.Context) error {
	out := a.cfg.Output

	if out.Directory != "" {
		w := output.NewMatchWriter(out.Directory, a.log.Named("output"))
		w.CSV = out.WriteCSV
		a.sink = append(a.sink, w)
	}

	if out.SQLitePath != "" {
		db, err := storage.Open(storage.DefaultConfig(out.SQLitePath))
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.db = db
		a.matches = storage.NewMatchStore(db)
		a.sink = append(a.sink, a.matches)
	}

	if out.PostgresDSN != "" {
		pg, err := postgres.New(ctx, out.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		a.sink = append(a.sink, pg)
	}
	return nil
}

// newSession creates a recording session writing to every sink.
func (a *app) newSession(live recorder.LiveGame) *recorder.Session {
	return recorder.NewSession(recorder.Options{
		Settings: recorder.Settings{
			RecordShopEvents: a.cfg.Recorder.RecordShopEvents,
			SaveRawBlocks:    a.cfg.Recorder.SaveRawBlocks,
			KeepDebugLogs:    a.cfg.Recorder.KeepDebugLogs,
			MaxRawBlocks:     a.cfg.Recorder.MaxRawBlocks,
		},
		Cards:   a.cards,
		Live:    live,
		Sink:    a.sink,
		Logger:  a.log.Named("recorder"),
		Metrics: a.metrics,
		Events:  a.dispatcher,
	})
}

// close releases resources in reverse order; the logger is synced last.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// requireStore returns the SQLite match store or an error when it is
// disabled.
func (a *app) requireStore() (*storage.MatchStore, error) {
	if a.matches == nil {
		return nil, fmt.Errorf("sqlite_path is not configured")
	}
	return a.matches, nil
}
