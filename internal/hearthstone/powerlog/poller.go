package powerlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Poller follows a growing Power.log and sends new lines through a channel.
// It tracks the read offset and starts over when the client truncates or
// recreates the file for a new session.
type Poller struct {
	path          string
	interval      time.Duration
	useFileEvents bool
	logger        *zap.Logger

	lastPos  int64
	lastSize int64
	lastMod  time.Time
	partial  string
	mu       sync.RWMutex

	ctx     context.Context
	cancel  context.CancelFunc
	updates chan *LogEntry
	errChan chan error
	done    chan struct{}

	running   bool
	runningMu sync.RWMutex
}

// PollerConfig holds configuration for a Poller.
type PollerConfig struct {
	// Path is the Power.log file to follow.
	Path string

	// Interval is how often to check for new lines. With file events enabled
	// it is the backup interval in case events are missed.
	// Default: 500 milliseconds
	Interval time.Duration

	// BufferSize is the size of the updates channel buffer.
	// Default: 1024
	BufferSize int

	// UseFileEvents enables fsnotify-triggered reads in addition to polling.
	UseFileEvents bool

	// ReadFromStart reads the existing content instead of seeking to the end.
	ReadFromStart bool

	Logger *zap.Logger
}

// DefaultPollerConfig returns a PollerConfig with sensible defaults.
func DefaultPollerConfig(path string) *PollerConfig {
	return &PollerConfig{
		Path:          path,
		Interval:      500 * time.Millisecond,
		BufferSize:    1024,
		UseFileEvents: true,
	}
}

// NewPoller creates a new Poller with the given configuration.
func NewPoller(config *PollerConfig) (*Poller, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if config.Interval <= 0 {
		config.Interval = 500 * time.Millisecond
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1024
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		path:          config.Path,
		interval:      config.Interval,
		useFileEvents: config.UseFileEvents,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		updates:       make(chan *LogEntry, config.BufferSize),
		errChan:       make(chan error, 1),
		done:          make(chan struct{}),
	}

	if !config.ReadFromStart {
		if err := p.initializePosition(); err != nil {
			cancel()
			return nil, fmt.Errorf("initialize position: %w", err)
		}
	}
	return p, nil
}

// initializePosition skips whatever the file already holds.
func (p *Poller) initializePosition() error {
	stat, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat file: %w", err)
	}

	p.mu.Lock()
	p.lastPos = stat.Size()
	p.lastSize = stat.Size()
	p.lastMod = stat.ModTime()
	p.mu.Unlock()
	return nil
}

// Start begins following the log file. The returned channel is closed when
// the poller stops.
func (p *Poller) Start() <-chan *LogEntry {
	p.runningMu.Lock()
	if p.running {
		p.runningMu.Unlock()
		return p.updates
	}
	p.running = true
	p.runningMu.Unlock()

	go p.poll()
	return p.updates
}

func (p *Poller) poll() {
	defer close(p.done)
	defer close(p.updates)

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if p.useFileEvents {
		watcher, err := p.newWatcher()
		if err != nil {
			p.logger.Warn("file events unavailable, polling only", zap.Error(err))
		} else {
			defer func() { _ = watcher.Close() }()
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(p.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				p.check()
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			p.report(fmt.Errorf("watch log: %w", err))
		case <-ticker.C:
			p.check()
		}
	}
}

// newWatcher watches the log directory; the client recreates Power.log on
// every launch, which a watch on the file itself would miss.
func (p *Poller) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch log directory: %w", err)
	}
	return watcher, nil
}

func (p *Poller) check() {
	if err := p.checkForUpdates(); err != nil && p.ctx.Err() == nil {
		p.report(err)
	}
}

func (p *Poller) report(err error) {
	select {
	case p.errChan <- err:
	default:
	}
}

// checkForUpdates reads lines appended since the last call.
func (p *Poller) checkForUpdates() error {
	file, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			p.mu.Lock()
			p.lastPos, p.lastSize, p.lastMod, p.partial = 0, 0, time.Time{}, ""
			p.mu.Unlock()
			return nil
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	p.mu.RLock()
	lastPos, lastSize, lastMod, partial := p.lastPos, p.lastSize, p.lastMod, p.partial
	p.mu.RUnlock()

	// A shrinking file means the client started a new log.
	if stat.Size() < lastPos || (stat.Size() < lastSize && !stat.ModTime().Equal(lastMod)) {
		p.logger.Info("log rotated", zap.String("path", p.path), zap.Int64("size", stat.Size()))
		lastPos, partial = 0, ""
	}

	if stat.Size() <= lastPos {
		return nil
	}
	if _, err := file.Seek(lastPos, io.SeekStart); err != nil {
		return fmt.Errorf("seek to position %d: %w", lastPos, err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	pos := lastPos
	var entries []*LogEntry
	for {
		chunk, err := reader.ReadString('\n')
		if len(chunk) > 0 && chunk[len(chunk)-1] == '\n' {
			start := pos - int64(len(partial))
			pos += int64(len(chunk))
			line := partial + chunk[:len(chunk)-1]
			partial = ""
			entries = append(entries, &LogEntry{Raw: trimCR(line), Offset: start})
		} else if len(chunk) > 0 {
			// Incomplete trailing line; keep it until the writer finishes it.
			pos += int64(len(chunk))
			partial += chunk
			if len(partial) > maxLineSize {
				partial = ""
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
	}

	p.mu.Lock()
	p.lastPos = pos
	p.lastSize = stat.Size()
	p.lastMod = stat.ModTime()
	p.partial = partial
	p.mu.Unlock()

	for _, entry := range entries {
		select {
		case p.updates <- entry:
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
	}
	return nil
}

// Stop stops the poller and blocks until its goroutine has exited.
func (p *Poller) Stop() {
	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		p.cancel()
		return
	}
	p.running = false
	p.runningMu.Unlock()

	p.cancel()
	<-p.done
}

// Errors returns a channel that receives errors encountered while following.
func (p *Poller) Errors() <-chan error {
	return p.errChan
}

// IsRunning returns whether the poller is currently running.
func (p *Poller) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}
