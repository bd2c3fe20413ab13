package websocket

import (
	"slices"
	"sync"
)

// ClientSubscription tracks event subscriptions for a WebSocket client.
type ClientSubscription struct {
	subscriptions map[string]bool
	subscribeAll  bool // Receive every event; the state of a fresh client
	mu            sync.RWMutex
}

// NewClientSubscription creates a subscription that receives all events.
func NewClientSubscription() *ClientSubscription {
	return &ClientSubscription{
		subscriptions: make(map[string]bool),
		subscribeAll:  true,
	}
}

// Subscribe adds event types to the subscription list. The first explicit
// subscription turns off "subscribe all".
func (cs *ClientSubscription) Subscribe(eventTypes []string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.subscribeAll && len(eventTypes) > 0 {
		cs.subscribeAll = false
	}
	for _, eventType := range eventTypes {
		cs.subscriptions[eventType] = true
	}
}

// Unsubscribe removes event types from the subscription list.
func (cs *ClientSubscription) Unsubscribe(eventTypes []string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, eventType := range eventTypes {
		delete(cs.subscriptions, eventType)
	}
}

// SubscribeAll enables receiving all events.
func (cs *ClientSubscription) SubscribeAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.subscribeAll = true
}

// IsSubscribed checks if the client should receive the given event type.
func (cs *ClientSubscription) IsSubscribed(eventType string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.subscribeAll || cs.subscriptions[eventType]
}

// GetSubscriptions returns the subscribed types, sorted, or ["*"].
func (cs *ClientSubscription) GetSubscriptions() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if cs.subscribeAll {
		return []string{"*"}
	}
	result := make([]string, 0, len(cs.subscriptions))
	for eventType := range cs.subscriptions {
		result = append(result, eventType)
	}
	slices.Sort(result)
	return result
}
