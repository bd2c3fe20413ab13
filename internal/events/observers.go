package events

import (
	"slices"

	"go.uber.org/zap"
)

// LoggingObserver logs every event.
type LoggingObserver struct {
	name    string
	verbose bool
	logger  *zap.Logger
}

// NewLoggingObserver creates an observer that logs events at Info, or at
// Debug with the payload when verbose is set.
func NewLoggingObserver(logger *zap.Logger, verbose bool) *LoggingObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingObserver{name: "LoggingObserver", verbose: verbose, logger: logger}
}

// OnEvent logs the event.
func (o *LoggingObserver) OnEvent(event Event) error {
	if o.verbose {
		o.logger.Debug("event", zap.String("type", event.Type), zap.Any("data", event.Data))
		return nil
	}
	o.logger.Info("event", zap.String("type", event.Type))
	return nil
}

// GetName returns the observer's name.
func (o *LoggingObserver) GetName() string {
	return o.name
}

// ShouldHandle accepts every event.
func (o *LoggingObserver) ShouldHandle(string) bool {
	return true
}

// FuncObserver adapts a function to Observer, optionally filtered to a set
// of event types.
type FuncObserver struct {
	Name  string
	Types []string
	Fn    func(Event) error
}

// OnEvent calls Fn.
func (o *FuncObserver) OnEvent(event Event) error {
	return o.Fn(event)
}

// GetName returns the observer's name.
func (o *FuncObserver) GetName() string {
	return o.Name
}

// ShouldHandle reports whether eventType is in Types. An empty Types accepts all.
func (o *FuncObserver) ShouldHandle(eventType string) bool {
	if len(o.Types) == 0 {
		return true
	}
	return slices.Contains(o.Types, eventType)
}
