// Package buffer holds the bounded trail of recorded samples.
//
// The buffer is a sliding window over the most recent interaction
// history: once full, every append evicts the oldest sample.
package buffer

import (
	"sync"

	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/pkg/metrics"
)

// DefaultCapacity bounds the buffer when no capacity option is given.
const DefaultCapacity = 1000

// Sample is the element type held by the buffer.
type Sample = model.Sample

// Buffer is an ordered, capacity-bounded sequence of samples.
type Buffer interface {
	// Append adds s at the tail. Returns true if the oldest sample had
	// to be evicted to make room.
	Append(s Sample) bool

	// Drain removes and returns every buffered sample, oldest first. The
	// buffer is empty when Drain returns; an Append racing with Drain is
	// either fully included in the result or lands in the emptied buffer.
	Drain() []Sample

	// Len returns the number of buffered samples.
	Len() int

	// Cap returns the capacity.
	Cap() int
}

// Ring implements Buffer with a fixed circular slice.
type Ring struct {
	mu       sync.Mutex
	entries  []Sample
	head     int // index of the oldest sample
	size     int
	capacity int
}

// New creates a ring buffer with configuration options.
func New(opts ...Option) *Ring {
	r := &Ring{capacity: DefaultCapacity}

	for _, opt := range opts {
		opt(r)
	}

	r.entries = make([]Sample, r.capacity)

	metrics.UpdateBufferCapacity(r.capacity)
	metrics.UpdateBufferSize(0)

	return r
}

// Append adds s, evicting the oldest sample when full.
func (r *Ring) Append(s Sample) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := false
	if r.size < r.capacity {
		r.entries[(r.head+r.size)%r.capacity] = s
		r.size++
	} else {
		// Full: overwrite the oldest slot and advance head past it.
		r.entries[r.head] = s
		r.head = (r.head + 1) % r.capacity
		evicted = true
		metrics.RecordSampleEvicted()
	}

	metrics.UpdateBufferSize(r.size)
	return evicted
}

// Drain empties the buffer and returns its former contents in order.
// Returns nil when the buffer is already empty.
func (r *Ring) Drain() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil
	}

	out := make([]Sample, r.size)
	n := copy(out, r.entries[r.head:min(r.head+r.size, r.capacity)])
	if n < r.size {
		copy(out[n:], r.entries[:r.size-n])
	}

	r.head = 0
	r.size = 0
	metrics.UpdateBufferSize(0)
	return out
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the buffer capacity.
func (r *Ring) Cap() int {
	return r.capacity // Immutable, no lock needed
}
