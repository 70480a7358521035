// Package trail turns raw movement notifications into buffered samples.
package trail

import (
	"context"
	"sync"
	"time"

	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

// DefaultThrottle is the minimum spacing between two accepted movements.
const DefaultThrottle = 50 * time.Millisecond

// Movement is one notification from the host input system.
type Movement struct {
	X, Y float64
	Kind model.Kind
	At   time.Time
	// Touches is the number of active contact points. Only consulted for
	// touch movements; a touch notification without contacts is dropped.
	Touches int
}

// Appender receives accepted samples.
type Appender interface {
	Append(s model.Sample) bool
}

// Collector applies a leading-edge throttle to movements and appends the
// accepted ones to a buffer. Safe for concurrent use.
type Collector struct {
	mu           sync.Mutex
	buf          Appender
	log          logger.Logger
	throttle     time.Duration
	start        time.Time
	lastAccepted time.Time
	accepted     bool
}

// New creates a collector appending to buf.
func New(buf Appender, opts ...Option) *Collector {
	c := &Collector{
		buf:      buf,
		log:      logger.Nop(),
		throttle: DefaultThrottle,
		start:    time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnMove records m if it passes the throttle. Returns whether a sample
// was appended.
func (c *Collector) OnMove(m Movement) bool {
	if m.Kind == model.Touch && m.Touches == 0 {
		metrics.RecordSampleDropped()
		c.log.Debug(context.Background(), "touch movement without contacts dropped")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A movement stamped at or before the last acceptance always fails
	// this test, so offsets never decrease.
	if c.accepted && m.At.Sub(c.lastAccepted) <= c.throttle {
		metrics.RecordSampleThrottled()
		return false
	}

	c.accepted = true
	c.lastAccepted = m.At

	c.buf.Append(model.Sample{
		X:            m.X,
		Y:            m.Y,
		Kind:         m.Kind,
		OffsetMillis: m.At.Sub(c.start).Milliseconds(),
	})
	metrics.RecordSampleAccepted(m.Kind.String())
	return true
}

// Start returns the reference instant of sample offsets.
func (c *Collector) Start() time.Time {
	return c.start
}
