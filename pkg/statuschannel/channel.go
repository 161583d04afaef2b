// Package statuschannel maintains one logical subscription to the engine's
// broadcast status topic and fans incoming events out to registered
// listeners. Two transports exist: a websocket connection to the backend's
// push endpoint and a broker subscription reading the same topic directly.
package statuschannel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowdash/flowdash/pkg/models"
)

// Topic is the broadcast topic carrying StatusUpdateEvent bodies.
const Topic = "workflow-status"

const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHeartbeatInterval = 4 * time.Second
)

// Listener receives every event delivered after its registration, in arrival
// order. Delivery order across different listeners is unspecified.
type Listener func(event models.StatusUpdateEvent)

// Channel is a long-lived subscription to the status topic, independent of
// how many local listeners are registered.
type Channel interface {
	// Connect establishes the transport and resolves once the session
	// handshake completes. The credential is the same bearer token used for
	// REST calls; transports that authenticate elsewhere ignore it.
	Connect(ctx context.Context, credential string) error

	// Subscribe registers a listener. Replacing an existing id is allowed.
	Subscribe(listenerID string, fn Listener)

	// Unsubscribe removes a listener. Idempotent.
	Unsubscribe(listenerID string)

	// Disconnect tears down the transport and clears all listeners.
	// Idempotent.
	Disconnect() error

	// Connected reports whether the transport is currently established.
	Connected() bool
}

// ConnectError indicates a protocol-level connection failure.
type ConnectError struct {
	Message string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("status channel connect: %s", e.Message)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// listenerSet is the shared listener registry. Dispatch happens from a single
// reader goroutine per transport, so each listener sees events in arrival
// order.
type listenerSet struct {
	mu        sync.RWMutex
	listeners map[string]Listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{listeners: make(map[string]Listener)}
}

func (s *listenerSet) add(id string, fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners[id] = fn
}

func (s *listenerSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listeners, id)
}

func (s *listenerSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = make(map[string]Listener)
}

func (s *listenerSet) dispatch(event models.StatusUpdateEvent) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}
