package events

import (
	"sync"

	"go.uber.org/zap"
)

// Topics published by the room catalog.
const (
	TopicConflictDetected = "conflict:detected"
	TopicConflictResolved = "conflict:resolved"
)

// Event is a published message.
type Event struct {
	Topic   string
	Payload any
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

type subscriber struct {
	topic string
	ch    chan Event
}

// Bus is an in-process publish/subscribe channel. Publish never blocks:
// an event that does not fit a subscriber's buffer is dropped for that
// subscriber and logged.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]subscriber
	next   int
	buffer int
	logger *zap.Logger
	closed bool
}

// NewBus creates a bus. A buffer below 1 uses DefaultBuffer.
func NewBus(logger *zap.Logger, buffer int) *Bus {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{subs: map[int]subscriber{}, buffer: buffer, logger: logger}
}

// Subscribe returns a channel receiving events of topic and a function that
// cancels the subscription and closes the channel.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = subscriber{topic: topic, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
}

// Publish delivers payload to every subscriber of topic and returns how many
// received it.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, s := range b.subs {
		if s.topic != topic {
			continue
		}
		select {
		case s.ch <- Event{Topic: topic, Payload: payload}:
			delivered++
		default:
			b.logger.Warn("event dropped, subscriber buffer full", zap.String("topic", topic))
		}
	}
	return delivered
}

// Close closes every subscriber channel. Later publishes deliver nothing.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}
