package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event is a domain event delivered to observers.
type Event struct {
	// Type is the event type, e.g. "combat:start".
	Type string

	// Data is the typed payload, one of the structs in messages.go.
	Data any

	Context context.Context
}

// Observer receives dispatched events.
type Observer interface {
	// OnEvent is called for every event the observer accepts.
	OnEvent(event Event) error

	// GetName returns a name for logging.
	GetName() string

	// ShouldHandle filters events by type.
	ShouldHandle(eventType string) bool
}

// EventDispatcher fans events out to registered observers.
// Safe for concurrent use.
type EventDispatcher struct {
	observers []Observer
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewEventDispatcher creates a dispatcher. A nil logger is replaced by a no-op logger.
func NewEventDispatcher(logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventDispatcher{logger: logger.Named("events")}
}

// Register adds an observer.
func (d *EventDispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	d.logger.Debug("observer registered", zap.String("observer", observer.GetName()))
}

// Unregister removes an observer.
func (d *EventDispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			d.logger.Debug("observer unregistered", zap.String("observer", observer.GetName()))
			return
		}
	}
}

func (d *EventDispatcher) snapshot() []Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	return observers
}

// Dispatch notifies observers sequentially in registration order. Observer
// errors are logged and do not stop delivery to the rest.
func (d *EventDispatcher) Dispatch(event Event) {
	for _, observer := range d.snapshot() {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		if err := observer.OnEvent(event); err != nil {
			d.logger.Warn("observer failed",
				zap.String("observer", observer.GetName()),
				zap.String("event", event.Type),
				zap.Error(err))
		}
	}
}

// DispatchAsync notifies each observer on its own goroutine.
func (d *EventDispatcher) DispatchAsync(event Event) {
	for _, observer := range d.snapshot() {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		go func(obs Observer) {
			if err := obs.OnEvent(event); err != nil {
				d.logger.Warn("observer failed",
					zap.String("observer", obs.GetName()),
					zap.String("event", event.Type),
					zap.Error(err))
			}
		}(observer)
	}
}

// Publish dispatches payload under eventType. It lets the dispatcher serve as
// the recorder's event publisher.
func (d *EventDispatcher) Publish(eventType string, payload any) {
	d.Dispatch(NewTypedEvent(eventType, payload, context.Background()))
}

// ObserverCount returns the number of registered observers.
func (d *EventDispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// Clear removes all observers.
func (d *EventDispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = nil
}

// NewTypedEvent creates an Event carrying data.
func NewTypedEvent[T any](eventType string, data T, ctx context.Context) Event {
	return Event{Type: eventType, Data: data, Context: ctx}
}

// GetTypedData extracts the payload as T.
func GetTypedData[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}
