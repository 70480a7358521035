// Package app wires the collection and delivery pipeline into one agent
// bound to a single page session.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/watchtower/internal/adapters/buffer"
	"github.com/okian/watchtower/internal/domain/delivery"
	"github.com/okian/watchtower/internal/domain/fingerprint"
	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/internal/domain/session"
	"github.com/okian/watchtower/internal/domain/trail"
	"github.com/okian/watchtower/internal/probe"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

// Default agent configuration constants.
const (
	defaultFlushInterval = 5 * time.Second
	defaultMoveQueue     = 256
)

// Sender is the transport the agent delivers through.
type Sender = delivery.Sender

// Stats is a snapshot of the agent state.
type Stats struct {
	SessionID   string `json:"session_id"`
	Started     bool   `json:"started"`
	TornDown    bool   `json:"torn_down"`
	Buffered    int    `json:"buffered"`
	Capacity    int    `json:"capacity"`
	ProfileSent bool   `json:"profile_sent"`
}

// Agent owns the collector, buffer and scheduler of one page session. All
// three are driven from a single goroutine: movements, flush ticks and
// teardown are messages to it, so a tick never interleaves with a
// teardown.
type Agent struct {
	mu sync.Mutex

	sender Sender
	id     session.ID
	page   fingerprint.Page
	env    fingerprint.Environment
	probes fingerprint.Probes

	throttle      time.Duration
	flushInterval time.Duration
	capacity      int
	probeTimeout  time.Duration
	moveQueue     int

	buf       *buffer.Ring
	collector *trail.Collector
	scheduler *delivery.Scheduler

	moves    chan trail.Movement
	teardown chan struct{}
	done     chan struct{}

	// pageCtx lives as long as the page; teardown cancels it.
	pageCtx    context.Context
	cancelPage context.CancelFunc

	// start anchors sample offsets. Fixed in New.
	start time.Time

	started     bool
	closing     bool
	tornDown    bool
	profileSent bool

	logger logger.Logger
}

// New constructs an agent delivering through sender.
func New(sender Sender, opts ...Option) *Agent {
	host := probe.New()
	a := &Agent{
		sender:        sender,
		id:            session.New(),
		start:         time.Now(),
		env:           host,
		probes:        host.Probes(),
		throttle:      trail.DefaultThrottle,
		flushInterval: defaultFlushInterval,
		capacity:      buffer.DefaultCapacity,
		probeTimeout:  fingerprint.DefaultProbeTimeout,
		moveQueue:     defaultMoveQueue,
		teardown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Nop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.moves = make(chan trail.Movement, a.moveQueue)
	return a
}

// SessionID returns the identifier shared by every payload of this agent.
func (a *Agent) SessionID() session.ID {
	return a.id
}

// Start begins accepting movements, starts the flush ticker and launches
// profile aggregation. Cancelling ctx tears the agent down.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}
	if a.tornDown {
		return fmt.Errorf("agent %s already torn down", a.id)
	}

	a.buf = buffer.New(buffer.WithCapacity(a.capacity))
	a.collector = trail.New(a.buf,
		trail.WithThrottle(a.throttle),
		trail.WithStart(a.start),
		trail.WithLogger(a.logger.Named("trail")),
	)
	a.scheduler = delivery.New(a.buf, a.sender, a.id,
		delivery.WithPageURL(a.page.URL),
		delivery.WithLogger(a.logger.Named("delivery")),
	)
	aggregator := fingerprint.New(a.env, a.page, a.probes, a.id,
		fingerprint.WithProbeTimeout(a.probeTimeout),
		fingerprint.WithLogger(a.logger.Named("fingerprint")),
	)

	a.pageCtx, a.cancelPage = context.WithCancel(ctx)
	a.started = true

	go a.run()
	go a.submitProfile(aggregator)

	a.logger.Info(ctx, "agent started",
		logger.String("session_id", a.id.String()),
		logger.String("page_url", a.page.URL),
		logger.Duration("flush_interval", a.flushInterval),
		logger.Int("buffer_capacity", a.capacity),
	)
	return nil
}

// Move reports a movement. It never blocks: when the agent loop is
// backed up or teardown has begun the movement is dropped and false is
// returned. A true result means the movement reaches the collector.
// Movements reported before Start wait for the loop.
func (a *Agent) Move(m trail.Movement) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		return false
	}

	select {
	case a.moves <- m:
		return true
	default:
		metrics.RecordSampleDropped()
		return false
	}
}

// Teardown drains the remaining samples into the guaranteed delivery path
// and stops the agent. It blocks until the agent loop has finished and is
// safe to call more than once.
func (a *Agent) Teardown() {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if !started {
		return
	}

	select {
	case a.teardown <- struct{}{}:
	case <-a.done:
	}
	<-a.done
}

// Done is closed once the agent has torn down.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// Stats returns a snapshot of the agent state.
func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		SessionID:   a.id.String(),
		Started:     a.started,
		TornDown:    a.tornDown,
		Capacity:    a.capacity,
		ProfileSent: a.profileSent,
	}
	if a.buf != nil {
		s.Buffered = a.buf.Len()
	}
	return s
}

// run is the agent loop. It is the only caller of the collector and the
// scheduler.
func (a *Agent) run() {
	defer close(a.done)

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case m := <-a.moves:
			a.handle("move", func() { a.collector.OnMove(m) })
		case <-ticker.C:
			a.handle("tick", func() { a.scheduler.OnTick(a.pageCtx) })
		case <-a.teardown:
			a.shutdown()
			return
		case <-a.pageCtx.Done():
			a.shutdown()
			return
		}
	}
}

// shutdown runs the teardown drain exactly once, from the agent loop.
func (a *Agent) shutdown() {
	// No Move can enqueue once closing is set, so the drain below sees
	// every accepted movement.
	a.mu.Lock()
	a.closing = true
	a.mu.Unlock()

	for pending := true; pending; {
		select {
		case m := <-a.moves:
			a.handle("move", func() { a.collector.OnMove(m) })
		default:
			pending = false
		}
	}

	buffered := a.buf.Len()
	a.handle("teardown", func() { a.scheduler.OnTeardown() })
	a.cancelPage()

	a.mu.Lock()
	a.tornDown = true
	a.mu.Unlock()

	a.logger.Info(context.Background(), "agent torn down",
		logger.String("session_id", a.id.String()),
		logger.Int("final_samples", buffered),
	)
}

// submitProfile aggregates the profile and ships it once.
func (a *Agent) submitProfile(aggregator *fingerprint.Aggregator) {
	profile := aggregator.Aggregate(a.pageCtx)
	if a.pageCtx.Err() != nil {
		a.logger.Debug(context.Background(), "page gone before profile completed")
		return
	}

	a.handle("profile", func() {
		a.sender.SendAsync(a.pageCtx, model.ProfilePath, profile)
	})

	a.mu.Lock()
	a.profileSent = true
	a.mu.Unlock()
}

// handle runs fn and converts a panic into a logged error so no single
// message can stop the agent.
func (a *Agent) handle(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("agent", op+"_panic")
			a.logger.Error(context.Background(), "agent handler panicked",
				logger.String("op", op),
				logger.Any("panic", r),
			)
		}
	}()
	fn()
}
