package events

import (
	"sync"
	"time"

	"blockdates/internal/models"
)

// Event types published by the booking lifecycle and calendar sync.
const (
	TypeBookingCreated = "booking-created"
	TypeBookingUpdated = "booking-updated"
	TypeBookingDeleted = "booking-deleted"
	TypeCalendarSynced = "calendar-synced"
)

// Event is a lightweight invalidation event. Resource is nil for events that
// do not carry a resource id; subscribers treat those as global.
type Event struct {
	Type      string
	Resource  *models.Resource
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for invalidation events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeBookingChanges registers a handler for all booking-lifecycle events.
func (b *Bus) SubscribeBookingChanges(handler Handler) {
	for _, t := range []string{TypeBookingCreated, TypeBookingUpdated, TypeBookingDeleted} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}
