// Package queue holds outbound deliveries between the engine and the
// delivery workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
)

// Delivery is the payload type flowing through the queue.
type Delivery = model.Delivery

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a delivery to the queue.
	// Returns false if the queue is full or closed and the delivery was dropped.
	Enqueue(ctx context.Context, d Delivery) bool

	// Dequeue returns the channel deliveries are read from.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Delivery

	// Len returns the current number of queued deliveries.
	Len(ctx context.Context) int

	// Close stops accepting deliveries.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Delivery
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Delivery, q.capacity)
	return q
}

// Enqueue adds a delivery to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, d Delivery) bool { //nolint:gocritic // hugeParam: Delivery is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordDeliveryDropped("closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordDeliveryDropped("context_cancelled")
		return false
	default:
	}

	select {
	case q.events <- d:
		metrics.RecordDeliveryEnqueued()
		return true
	default:
		metrics.RecordDeliveryDropped("full")
		return false
	}
}

// Dequeue returns the channel deliveries are read from.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Delivery {
	return q.events
}

// Len returns the current number of queued deliveries.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.events)
}

// Close stops accepting deliveries. Queued ones can still be read.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
