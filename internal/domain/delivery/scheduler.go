// Package delivery decides when buffered samples leave the agent.
//
// Two triggers drain the buffer: a periodic tick, delivered with
// fire-and-forget semantics, and page teardown, delivered once through the
// guaranteed-enqueue path so the batch survives the page going away.
package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/internal/domain/session"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

// Flush triggers, used as metric labels.
const (
	TriggerTick     = "tick"
	TriggerTeardown = "teardown"
)

// Drainer hands over every buffered sample at once.
type Drainer interface {
	Drain() []model.Sample
}

// Sender delivers payloads to the collection endpoint.
type Sender interface {
	SendAsync(ctx context.Context, path string, payload any)
	SendGuaranteed(path string, payload any) bool
}

// Scheduler turns buffer drains into trail batches.
type Scheduler struct {
	mu       sync.Mutex
	buf      Drainer
	sender   Sender
	session  session.ID
	pageURL  string
	now      func() time.Time
	log      logger.Logger
	tornDown bool
}

// New creates a scheduler draining buf into sender.
func New(buf Drainer, sender Sender, id session.ID, opts ...Option) *Scheduler {
	s := &Scheduler{
		buf:     buf,
		sender:  sender,
		session: id,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnTick drains the buffer and ships the batch fire-and-forget. Returns
// false without contacting the sender when there is nothing to send or
// teardown already ran.
func (s *Scheduler) OnTick(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tornDown {
		return false
	}

	batch, ok := s.drain()
	if !ok {
		return false
	}

	s.sender.SendAsync(ctx, model.TrailPath, batch)
	metrics.RecordBatchFlushed(TriggerTick, len(batch.Trail))
	s.log.Debug(ctx, "trail batch flushed", logger.Int("samples", len(batch.Trail)))
	return true
}

// OnTeardown drains whatever remains and enqueues it on the guaranteed
// path. Only the first call does anything; later calls return false.
// Returns whether a batch was handed to the sender.
func (s *Scheduler) OnTeardown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tornDown {
		return false
	}
	s.tornDown = true

	batch, ok := s.drain()
	if !ok {
		return false
	}

	accepted := s.sender.SendGuaranteed(model.TrailPath, batch)
	metrics.RecordBatchFlushed(TriggerTeardown, len(batch.Trail))
	if !accepted {
		s.log.Warn(context.Background(), "final trail batch rejected by beacon queue",
			logger.Int("samples", len(batch.Trail)))
	}
	return true
}

// drain must be called with mu held.
func (s *Scheduler) drain() (model.TrailBatch, bool) {
	samples := s.buf.Drain()
	if len(samples) == 0 {
		return model.TrailBatch{}, false
	}
	return model.TrailBatch{
		SessionID: s.session.String(),
		Timestamp: model.FormatTimestamp(s.now()),
		Trail:     samples,
		URL:       s.pageURL,
	}, true
}
