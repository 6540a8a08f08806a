package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_PublishReachesAllSubscribers(t *testing.T) {
	s := NewStream[string]()
	a := s.Subscribe()
	b := s.Subscribe()

	s.Publish("hello")

	assert.Equal(t, "hello", <-a)
	assert.Equal(t, "hello", <-b)
}

func TestStream_PublishOrderPreserved(t *testing.T) {
	s := NewStream[int]()
	ch := s.Subscribe()

	for i := 0; i < 5; i++ {
		s.Publish(i)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, <-ch)
	}
}

func TestStream_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s := NewStream[int]()
	ch := s.Subscribe()

	// Overfill the subscriber buffer; Publish must not block.
	for i := 0; i < subscriberBuffer*2; i++ {
		s.Publish(i)
	}

	// The first buffered events are still delivered in order.
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
}

func TestStream_PublishAfterCloseIsNoOp(t *testing.T) {
	s := NewStream[string]()
	ch := s.Subscribe()
	s.Close()

	// Must not panic or deliver.
	s.Publish("late")

	_, open := <-ch
	assert.False(t, open, "subscriber channel should be closed")
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	s := NewStream[string]()
	s.Subscribe()
	s.Close()
	require.NotPanics(t, func() { s.Close() })
	assert.True(t, s.Closed())
}

func TestStream_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	s := NewStream[int]()
	s.Close()

	ch := s.Subscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestStream_Unsubscribe(t *testing.T) {
	s := NewStream[int]()
	a := s.Subscribe()
	b := s.Subscribe()
	require.Equal(t, 2, s.SubscriberCount())

	s.Unsubscribe(a)
	assert.Equal(t, 1, s.SubscriberCount())

	_, open := <-a
	assert.False(t, open, "unsubscribed channel should be closed")

	s.Publish(42)
	assert.Equal(t, 42, <-b)
}
