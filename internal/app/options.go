package app

import (
	"time"

	"github.com/okian/watchtower/internal/domain/fingerprint"
	"github.com/okian/watchtower/internal/domain/session"
	"github.com/okian/watchtower/pkg/logger"
)

// Option applies a configuration option to the Agent.
type Option func(*Agent)

// WithLogger sets a custom logger for the agent and its components.
func WithLogger(l logger.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithThrottle sets the minimum spacing between accepted movements.
func WithThrottle(d time.Duration) Option {
	return func(a *Agent) {
		if d >= 0 {
			a.throttle = d
		}
	}
}

// WithFlushInterval sets the period of trail deliveries.
func WithFlushInterval(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.flushInterval = d
		}
	}
}

// WithBufferCapacity sets the maximum number of buffered samples.
func WithBufferCapacity(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.capacity = n
		}
	}
}

// WithProbeTimeout bounds each asynchronous probe. Zero disables the bound.
func WithProbeTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d >= 0 {
			a.probeTimeout = d
		}
	}
}

// WithPage sets the page URL and referrer attached to payloads.
func WithPage(p fingerprint.Page) Option {
	return func(a *Agent) {
		a.page = p
	}
}

// WithEnvironment replaces the source of synchronous profile attributes.
func WithEnvironment(env fingerprint.Environment) Option {
	return func(a *Agent) {
		if env != nil {
			a.env = env
		}
	}
}

// WithProbes replaces the fingerprint probes.
func WithProbes(p fingerprint.Probes) Option {
	return func(a *Agent) {
		a.probes = p
	}
}

// WithMoveQueue sets how many movements may wait for the agent loop.
func WithMoveQueue(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.moveQueue = n
		}
	}
}

// WithSessionID fixes the session identifier instead of generating one.
func WithSessionID(id session.ID) Option {
	return func(a *Agent) {
		if id != "" {
			a.id = id
		}
	}
}
