package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for the event channel.
const DefaultEventBufferSize = 100

var (
	// ErrEventBusClosed is returned when publishing after Close.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrEventBufferFull is returned when an event is dropped because the buffer is full.
	ErrEventBufferFull = errors.New("event buffer full")
)

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

var eventInterface = reflect.TypeFor[domain.Event]()

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces.
//
// A single dispatcher goroutine delivers events in publish order, so
// handlers for one guild observe its events in the order they happened.
type ChannelEventBus struct {
	events   chan domain.Event
	handlers map[reflect.Type][]func(context.Context, domain.Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		events:   make(chan domain.Event, bufferSize),
		handlers: make(map[reflect.Type][]func(context.Context, domain.Event)),
		ctx:      ctx,
		cancel:   cancel,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

func (b *ChannelEventBus) dispatch() {
	defer b.wg.Done()

	// Drains whatever is buffered once Close closes the channel.
	for event := range b.events {
		b.mu.RLock()
		handlers := b.handlers[reflect.TypeOf(event)]
		b.mu.RUnlock()

		for _, handler := range handlers {
			handler(b.ctx, event)
		}
	}
}

// --- EventPublisher interface ---

// Publish queues an event for delivery.
// Non-blocking: if the buffer is full, the event is dropped and ErrEventBufferFull returned.
func (b *ChannelEventBus) Publish(event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrEventBusClosed
	}

	select {
	case b.events <- event:
		slog.Debug("published event", "type", fmt.Sprintf("%T", event), "guild", event.Guild())
		return nil
	default:
		return fmt.Errorf("%w: dropping %T", ErrEventBufferFull, event)
	}
}

// --- EventSubscriber interface ---

// Subscribe registers a handler for events of exactly eventType.
func (b *ChannelEventBus) Subscribe(
	eventType reflect.Type,
	handler func(context.Context, domain.Event),
) error {
	if eventType == nil || !eventType.Implements(eventInterface) {
		return fmt.Errorf("cannot subscribe to %v: not a domain event", eventType)
	}
	if handler == nil {
		return errors.New("handler must not be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	return nil
}

// Close stops accepting events, delivers the ones already queued and
// stops the dispatcher.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.events)

	// Wait for the dispatcher to drain
	b.wg.Wait()

	b.cancel()

	slog.Debug("channel event bus closed")
}
