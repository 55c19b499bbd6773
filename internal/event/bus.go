package event

import (
	"sync"
)

// Subscriber is a channel that receives published events.
type Subscriber chan Event

// Bus fans events out to subscribers and keeps the most recent ones for
// late joiners.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
	buffer      int
	recent      *ringBuffer
}

// NewBus creates a Bus remembering the last keep events. Each subscriber
// channel holds up to buffer undelivered events.
func NewBus(keep, buffer int) *Bus {
	if keep < 1 {
		keep = 1
	}
	return &Bus{
		subscribers: make(map[Subscriber]struct{}),
		buffer:      buffer,
		recent:      newRingBuffer(keep),
	}
}

// Subscribe adds a new subscriber and returns its channel.
func (b *Bus) Subscribe() Subscriber {
	ch := make(Subscriber, b.buffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown or
// already removed subscribers are ignored.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish records e and sends it to every subscriber without blocking.
// It returns how many subscribers had a full buffer and missed it.
func (b *Bus) Publish(e Event) int {
	b.recent.add(e)

	b.mu.RLock()
	defer b.mu.RUnlock()
	dropped := 0
	for sub := range b.subscribers {
		select {
		case sub <- e:
		default:
			dropped++
		}
	}
	return dropped
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Recent returns up to n of the latest events, oldest first. n <= 0 means
// all that are kept.
func (b *Bus) Recent(n int) []Event {
	all := b.recent.snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Close unsubscribes everyone.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub)
	}
}

type ringBuffer struct {
	mu     sync.RWMutex
	events []Event
	index  int
	full   bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{events: make([]Event, size)}
}

func (rb *ringBuffer) add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.events[rb.index] = e
	rb.index = (rb.index + 1) % len(rb.events)
	if rb.index == 0 {
		rb.full = true
	}
}

func (rb *ringBuffer) snapshot() []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if !rb.full {
		return append([]Event{}, rb.events[:rb.index]...)
	}
	out := make([]Event, 0, len(rb.events))
	out = append(out, rb.events[rb.index:]...)
	return append(out, rb.events[:rb.index]...)
}
