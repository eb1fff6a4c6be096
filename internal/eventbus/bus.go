// Package eventbus provides an in-process pub/sub bus for entity change
// events. The HTTP API publishes after a successful write; subscribers such
// as the websocket feed and the log consumer process events asynchronously.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Type names an entity change.
type Type string

// Event types.
const (
	EntityCreated Type = "entity.created"
	EntityUpdated Type = "entity.updated"
	EntityDeleted Type = "entity.deleted"
)

// Event describes one committed change to an entity.
type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	EntityID     string    `json:"entity_id"`
	EntityTypeID string    `json:"entity_type_id,omitempty"`
	Name         string    `json:"name,omitempty"`
	At           time.Time `json:"at"`
}

// NewEvent builds an event for e stamped with the current time.
func NewEvent(t Type, e types.Entity) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Event{
		ID:           id.String(),
		Type:         t,
		EntityID:     e.ID,
		EntityTypeID: e.EntityTypeID,
		Name:         e.Name,
		At:           time.Now().UTC(),
	}
}

// Handler processes an event. Implementations must be safe for concurrent
// calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Bus is an in-process event bus. Events are published to a buffered channel
// and dispatched to all subscribers, in subscription order, by a single
// consumer goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	nextID      int
	closed      bool
	events      chan Event
	done        chan struct{}
	startOnce   sync.Once
	logger      *zap.Logger
}

type namedHandler struct {
	id      int
	name    string
	handler Handler
}

// New creates a Bus with the given channel buffer size.
func New(bufSize int, logger *zap.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		events: make(chan Event, bufSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Subscribe registers a named handler and returns a function that removes
// it. Subscribing is allowed while the bus is running.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	subs := make([]namedHandler, len(b.subscribers), len(b.subscribers)+1)
	copy(subs, b.subscribers)
	b.subscribers = append(subs, namedHandler{id: id, name: name, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := make([]namedHandler, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		if s.id != id {
			subs = append(subs, s)
		}
	}
	b.subscribers = subs
}

// Publish sends an event to the bus. It never blocks: if the buffer is full
// or the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("event bus stopped, dropping event",
			zap.String("type", string(evt.Type)),
			zap.String("entity_id", evt.EntityID),
		)
		return
	}
	select {
	case b.events <- evt:
	default:
		b.logger.Warn("event bus buffer full, dropping event",
			zap.String("type", string(evt.Type)),
			zap.String("entity_id", evt.EntityID),
		)
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called. Calling Start twice has no effect.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go func() {
			defer close(b.done)
			for {
				select {
				case evt, ok := <-b.events:
					if !ok {
						return
					}
					b.dispatch(ctx, evt)
				case <-ctx.Done():
					b.drain(ctx)
					return
				}
			}
		}()
	})
}

func (b *Bus) drain(ctx context.Context) {
	for {
		select {
		case evt, ok := <-b.events:
			if !ok {
				return
			}
			b.dispatch(ctx, evt)
		default:
			return
		}
	}
}

// Stop closes the bus and waits for queued events to be dispatched. Stop on
// a bus that was never started returns immediately.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	started := true
	b.startOnce.Do(func() { started = false })
	if started {
		<-b.done
	}
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("handler", s.name),
				zap.String("type", string(evt.Type)),
				zap.Error(err),
			)
		}
	}
}
