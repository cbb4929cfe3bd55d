package service

import (
	"sync"

	"github.com/vilaca/event-monitor/internal/domain"
)

// Broadcaster fans indexed events out to in-process subscribers.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan domain.Event]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold
// up to buffer events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[chan domain.Event]struct{}),
		buffer: buffer,
	}
}

// Publish sends events to every subscriber and returns the number of
// events dropped because a subscriber was behind.
func (b *Broadcaster) Publish(events []domain.Event) int {
	dropped := 0

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		for _, event := range events {
			select {
			case ch <- event:
			default:
				// subscriber is behind; drop to avoid blocking the poller
				dropped++
			}
		}
	}
	return dropped
}

// Subscribe returns a buffered channel that receives all new events.
func (b *Broadcaster) Subscribe() chan domain.Event {
	ch := make(chan domain.Event, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan domain.Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
