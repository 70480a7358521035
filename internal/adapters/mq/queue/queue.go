// Package queue holds serialized requests waiting for the beacon worker.
//
// A beacon is accepted or rejected at enqueue time and never blocks the
// caller. Once accepted it is delivered in FIFO order by a worker whose
// lifetime is independent of the page that queued it.
package queue

import (
	"sync"
	"time"

	"github.com/okian/watchtower/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Beacon is a request serialized at enqueue time. Body is owned by the
// queue once enqueued.
type Beacon struct {
	Path     string
	Body     []byte
	Encoding string // Content-Encoding, empty for identity
	Enqueued time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a beacon. Returns ErrFull or ErrClosed when the beacon
	// was not accepted.
	Enqueue(b Beacon) error

	// Dequeue returns the channel beacons are delivered on. The channel is
	// closed once the queue is closed and drained.
	Dequeue() <-chan Beacon

	// Len returns the current number of queued beacons.
	Len() int

	// Close stops accepting beacons. Already queued beacons remain
	// readable from Dequeue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	beacons  chan Beacon
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

	q.beacons = make(chan Beacon, q.capacity)
	metrics.UpdateBeaconQueueSize(0)

	return q
}

// Enqueue adds a beacon without blocking.
func (q *InMemoryQueue) Enqueue(b Beacon) error {
	// Read lock keeps Close from closing the channel under a send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("beacon_queue", "closed")
		return ErrClosed
	}

	if b.Enqueued.IsZero() {
		b.Enqueued = time.Now()
	}

	select {
	case q.beacons <- b:
		metrics.UpdateBeaconQueueSize(len(q.beacons))
		return nil
	default:
		metrics.RecordErrorByComponent("beacon_queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the beacon channel.
func (q *InMemoryQueue) Dequeue() <-chan Beacon {
	return q.beacons
}

// Len returns the current number of queued beacons.
func (q *InMemoryQueue) Len() int {
	size := len(q.beacons)
	metrics.UpdateBeaconQueueSize(size)
	return size
}

// Close stops accepting beacons.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	close(q.beacons)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
