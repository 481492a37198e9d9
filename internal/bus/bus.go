// Package bus is the in-process publish/subscribe channel decoupling
// telemetry producers from consumers (UI stream, notification surfaces)
// without a global event system.
package bus

import (
	"sync"
)

// Topic names an event stream.
type Topic string

const (
	TopicSnapshot   Topic = "snapshot"
	TopicAlert      Topic = "alert"
	TopicConflict   Topic = "conflict"
	TopicStrategy   Topic = "strategy"
	TopicPattern    Topic = "pattern"
	TopicCapability Topic = "capability"
)

// Message is one published event.
type Message struct {
	Topic   Topic
	Payload any
}

type subscriber struct {
	ch     chan Message
	topics map[Topic]struct{}
}

// Bus fans published messages out to subscribers. Publish never blocks:
// a subscriber that cannot keep up has messages dropped, the same policy a
// broadcast hub applies to slow websocket clients.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	closed bool
}

// New constructs a Bus whose subscriber channels buffer up to buffer
// messages.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{subs: make(map[int]*subscriber), buffer: buffer}
}

// Subscribe registers interest in the given topics (all topics when none
// are named). The returned cancel function removes the subscription and
// closes the channel; it is idempotent.
func (b *Bus) Subscribe(topics ...Topic) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan Message, b.buffer)}
	if len(topics) > 0 {
		sub.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers the message to every matching subscriber without
// blocking. Returns how many subscribers received it.
func (b *Bus) Publish(topic Topic, payload any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}
	msg := Message{Topic: topic, Payload: payload}
	delivered := 0
	for _, sub := range b.subs {
		if sub.topics != nil {
			if _, ok := sub.topics[topic]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			// Slow subscriber: drop rather than stall the telemetry path.
		}
	}
	return delivered
}

// Close shuts the bus down and closes all subscriber channels. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
