package bus

import (
	"sync"

	"github.com/fetchd/fetchd/internal/model"
)

// Package bus implements the in-process fan-out of queue lifecycle events.
// Delivery is best-effort: a subscriber that stops draining its channel loses
// events instead of back-pressuring the queue. New subscribers receive no
// history; the transport layer replays a registry snapshot on connect.

const defaultBuffer = 64

// Bus fans out events to any number of subscribers
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan model.Event
	buffer int
	closed bool
}

// New creates a bus with the default per-subscriber buffer
func New() *Bus {
	return &Bus{
		subs:   make(map[int]chan model.Event),
		buffer: defaultBuffer,
	}
}

// Subscribe registers a new observer. The returned cancel func removes the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan model.Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking. Events for
// a full subscriber channel are dropped.
func (b *Bus) Publish(ev model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts down the bus and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
