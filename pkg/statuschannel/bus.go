package statuschannel

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/flowdash/flowdash/pkg/models"
)

// Bus is the broker transport of the status channel: it consumes the same
// status topic the backend relays to its websocket, read straight from a
// watermill subscriber (kafka in ops deployments, gochannel in tests and the
// dev stub). Broker credentials live in the subscriber, so the Connect
// credential is ignored; reconnection is the subscriber's concern.
type Bus struct {
	subscriber message.Subscriber
	logger     *slog.Logger
	listeners  *listenerSet

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	connected atomic.Bool
}

// NewBus wraps a subscriber. The bus owns it: Disconnect closes it.
func NewBus(subscriber message.Subscriber, logger *slog.Logger) *Bus {
	return &Bus{
		subscriber: subscriber,
		logger:     logger,
		listeners:  newListenerSet(),
	}
}

// Connect subscribes to the status topic and starts consuming. Connecting an
// already connected bus is a no-op.
func (b *Bus) Connect(ctx context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	messages, err := b.subscriber.Subscribe(runCtx, Topic)
	if err != nil {
		cancel()

		return &ConnectError{Message: err.Error(), Err: err}
	}

	b.cancel = cancel
	b.done = make(chan struct{})
	b.connected.Store(true)

	go b.consume(messages)

	return nil
}

func (b *Bus) Subscribe(listenerID string, fn Listener) {
	b.listeners.add(listenerID, fn)
}

func (b *Bus) Unsubscribe(listenerID string) {
	b.listeners.remove(listenerID)
}

// Disconnect stops consumption, closes the underlying subscriber and clears
// all listeners. Idempotent.
func (b *Bus) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
		<-b.done
		b.cancel = nil
		b.done = nil
	}

	b.listeners.clear()

	if b.closed {
		return nil
	}

	b.closed = true

	return b.subscriber.Close()
}

func (b *Bus) Connected() bool {
	return b.connected.Load()
}

func (b *Bus) consume(messages <-chan *message.Message) {
	defer close(b.done)
	defer b.connected.Store(false)

	for msg := range messages {
		var event models.StatusUpdateEvent

		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			// Broadcast hints are not worth redelivery, drop the frame.
			b.logger.Debug("Skipping malformed status message", "error", err)
			msg.Ack()

			continue
		}

		b.listeners.dispatch(event)
		msg.Ack()
	}
}
