package delivery

import (
	"time"

	"github.com/okian/watchtower/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithPageURL sets the page URL stamped on every batch.
func WithPageURL(url string) Option {
	return func(s *Scheduler) {
		s.pageURL = url
	}
}

// WithClock sets the wall clock used for batch timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}
