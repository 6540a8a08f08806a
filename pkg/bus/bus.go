// Package bus provides broadcast streams for fan-out event delivery.
// Any number of subscribers can listen on a stream; publishing to a closed
// stream is a no-op by contract, never an error.
package bus

import "sync"

// subscriberBuffer is the channel capacity per subscriber. A subscriber that
// falls further behind than this drops events instead of blocking the
// publisher.
const subscriberBuffer = 16

// Stream is a broadcast channel for one event category.
type Stream[T any] struct {
	mu     sync.RWMutex
	subs   []chan T
	closed bool
}

// NewStream creates an open broadcast stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Subscribe registers a new listener and returns its receive channel.
// Subscribing to a closed stream returns an already-closed channel.
func (s *Stream[T]) Subscribe() <-chan T {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

// Unsubscribe removes a listener and closes its channel.
// Unknown channels are ignored.
func (s *Stream[T]) Unsubscribe(ch <-chan T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Publish delivers an event to every subscriber. Delivery is non-blocking:
// a subscriber with a full buffer misses the event. Publishing after Close
// is a no-op.
func (s *Stream[T]) Publish(event T) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full, skip.
		}
	}
}

// Close closes the stream and all subscriber channels. Idempotent.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// Closed reports whether the stream has been closed.
func (s *Stream[T]) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// SubscriberCount returns the number of active subscribers.
func (s *Stream[T]) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
