package trail

import (
	"time"

	"github.com/okian/watchtower/pkg/logger"
)

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithThrottle sets the minimum spacing between accepted movements.
// Zero accepts every movement.
func WithThrottle(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.throttle = d
		}
	}
}

// WithStart sets the reference instant sample offsets are measured from.
func WithStart(t time.Time) Option {
	return func(c *Collector) {
		if !t.IsZero() {
			c.start = t
		}
	}
}

// WithLogger sets the logger used for dropped movements.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.log = l
		}
	}
}
