// Package worker delivers queued beacons in the background.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/watchtower/internal/adapters/mq/queue"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

// Beacon is what the worker reads off the queue.
type Beacon = queue.Beacon

// Poster performs the network request for one beacon.
type Poster interface {
	Post(ctx context.Context, b Beacon) error
}

// Queue defines how the worker receives beacons.
type Queue interface {
	Dequeue() <-chan Beacon
}

// BeaconWorker posts beacons one at a time, preserving queue order.
// Failures are logged and counted, never retried.
type BeaconWorker struct {
	queue  Queue
	poster Poster
	name   string

	// Shutdown control
	abort chan struct{}
	done  chan struct{}

	logger logger.Logger
}

// NewBeaconWorker creates a new worker with configuration options.
func NewBeaconWorker(queue Queue, poster Poster, opts ...Option) *BeaconWorker {
	w := &BeaconWorker{
		queue:  queue,
		poster: poster,
		name:   "beacon",
		abort:  make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.Named(w.name)

	return w
}

// Run delivers beacons until the queue is closed and drained, ctx is
// cancelled or Shutdown gives up waiting.
func (w *BeaconWorker) Run(ctx context.Context) {
	defer close(w.done)

	beacons := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.abort:
			return
		case b, ok := <-beacons:
			if !ok {
				return
			}
			w.deliver(ctx, b)
		}
	}
}

// Shutdown waits for Run to drain the queue. The queue must already be
// closed. When ctx expires first the remaining beacons are abandoned.
func (w *BeaconWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		close(w.abort)
		w.logger.Warn(ctx, "shutdown timed out, abandoning queued beacons")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *BeaconWorker) Done() <-chan struct{} {
	return w.done
}

func (w *BeaconWorker) deliver(ctx context.Context, b Beacon) {
	metrics.RecordDeliveryLatency(b.Path, "beacon_wait", float64(time.Since(b.Enqueued).Milliseconds()))

	if err := w.poster.Post(ctx, b); err != nil {
		w.logger.Debug(ctx, "beacon delivery failed",
			logger.String("path", b.Path),
			logger.Int("bytes", len(b.Body)),
			logger.Error(err),
		)
	}
}
