package events

import (
	"sync"
	"time"
)

// Handler receives events from the bus. Handlers run on the bus dispatch
// goroutine and must not block.
type Handler func(Event)

// Bus provides event distribution across components.
// Emit never blocks: when the buffer is full the event is dropped.
type Bus struct {
	Capacity int

	mu       sync.RWMutex
	handlers []Handler
	events   chan Event
	closed   bool
	dropped  int
	done     chan struct{}
	now      func() time.Time
}

// NewBus creates a new event bus with the specified capacity and starts
// its dispatch goroutine
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	b := &Bus{
		Capacity: capacity,
		events:   make(chan Event, capacity),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go b.dispatch()
	return b
}

// Subscribe registers a handler for all subsequent events
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Emit stamps the event time and queues it for delivery.
// Emitting on a closed bus is a no-op.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.events <- e:
	default:
		b.dropped++
	}
}

// Dropped returns how many events were discarded because the buffer was full
func (b *Bus) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Close stops accepting events, delivers what is already queued, and waits
// for the dispatch goroutine to exit
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return nil
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	<-b.done
	return nil
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for e := range b.events {
		b.mu.RLock()
		handlers := append([]Handler(nil), b.handlers...)
		b.mu.RUnlock()

		for _, h := range handlers {
			h(e)
		}
	}
}
