// Package events implements the typed publish/subscribe bus the refresh
// coordinator and guard use to announce lifecycle transitions. Listener
// failures are isolated per subscriber and reported to the diagnostics
// logger, never to the emitter.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ethanvx/authguard/internal/clock"
)

// Event is an immutable notification value. The bus never retains events
// after emission.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Listener receives events of the type it subscribed to.
type Listener func(Event)

// Subscription identifies a registered listener for removal.
type Subscription struct {
	eventType string
	id        uint64
}

// Bus fans events out to per-type listener sets.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]Listener
	clock     clock.Clock
	logger    *zap.Logger
}

// NewBus creates an empty bus. A nil logger disables diagnostics reporting.
func NewBus(clk clock.Clock, logger *zap.Logger) *Bus {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		listeners: make(map[string]map[uint64]Listener),
		clock:     clk,
		logger:    logger,
	}
}

// Subscribe registers fn for events of the given type and returns the handle
// needed to unsubscribe it.
func (b *Bus) Subscribe(eventType string, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	set, ok := b.listeners[eventType]
	if !ok {
		set = make(map[uint64]Listener)
		b.listeners[eventType] = set
	}
	set[b.nextID] = fn

	return Subscription{eventType: eventType, id: b.nextID}
}

// Unsubscribe removes a previously registered listener. Unknown handles are
// a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.listeners[sub.eventType]
	if !ok {
		return
	}
	delete(set, sub.id)
	if len(set) == 0 {
		delete(b.listeners, sub.eventType)
	}
}

// Emit delivers an event of the given type to every listener registered for
// it. A panicking listener does not prevent delivery to the remaining
// listeners; the panic is logged and swallowed.
func (b *Bus) Emit(eventType string, data map[string]any) {
	b.mu.RLock()
	set := b.listeners[eventType]
	fns := make([]Listener, 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	if len(fns) == 0 {
		return
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: b.clock.Now(),
		Data:      data,
	}

	for _, fn := range fns {
		b.deliver(fn, event)
	}
}

func (b *Bus) deliver(fn Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				zap.String("event_type", event.Type),
				zap.String("event_id", event.ID),
				zap.Any("panic", r),
			)
		}
	}()
	fn(event)
}

// ListenerCount returns the number of listeners registered for a type.
func (b *Bus) ListenerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[eventType])
}

// Clear drops every listener. Used by coordinator cleanup.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[string]map[uint64]Listener)
}
