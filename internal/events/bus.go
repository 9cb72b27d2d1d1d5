package events

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handler receives one event. Handlers run synchronously on the
// publisher's goroutine and must be idempotent; delivery is
// at-most-once with no durable queue behind it.
type Handler func(evt Event) error

// Bus is a topic-keyed synchronous dispatcher. A subscriber failure is
// logged and does not abort the publisher or the remaining subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Topic][]Handler)}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish delivers evt to every subscriber of its topic, in
// subscription order.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := b.handlers[evt.Topic()]
	b.mu.RUnlock()

	for _, h := range subs {
		b.deliver(evt, h)
	}
}

func (b *Bus) deliver(evt Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event subscriber panicked", "topic", string(evt.Topic()), "panic", fmt.Sprint(r))
		}
	}()
	if err := h(evt); err != nil {
		slog.Error("event subscriber failed", "topic", string(evt.Topic()), "error", err)
	}
}
