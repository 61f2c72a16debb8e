// Package bus is a plain synchronous publish/subscribe dispatcher. Handlers
// run on the publisher's goroutine in subscription order; there is no
// buffering and no delivery guarantee beyond "subscribed handlers run".
package bus

import "sync"

// Event is one published occurrence.
type Event struct {
	Topic   string
	Payload any
}

// Handler consumes published events.
type Handler func(Event)

// Bus dispatches events by topic.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a topic. An empty topic subscribes to
// everything.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish dispatches an event to the topic's handlers and to wildcard
// subscribers, synchronously.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[topic]...)
	handlers = append(handlers, b.handlers[""]...)
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, h := range handlers {
		h(ev)
	}
}
