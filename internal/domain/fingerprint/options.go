package fingerprint

import (
	"time"

	"github.com/okian/watchtower/pkg/logger"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithProbeTimeout bounds each asynchronous probe. Zero waits indefinitely.
func WithProbeTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.timeout = d
		}
	}
}

// WithDigestKey sets the key of the profile digest.
func WithDigestKey(key [32]byte) Option {
	return func(a *Aggregator) {
		a.digestKey = key
	}
}

// WithClock sets the wall clock used for the profile timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the aggregator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}
