// Package config defines agent and collector configuration and loading hooks.
//
// Conventions:
// - New(ctx) returns a Config holding every default.
// - Load layers a YAML file and WATCHTOWER_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Endpoint is the collection base URL; paths are appended to it.
	Endpoint string `koanf:"endpoint"`

	// PageURL and Referrer describe the page the agent is bound to.
	PageURL  string `koanf:"page_url"`
	Referrer string `koanf:"referrer"`

	// ThrottleMS is the minimum spacing between accepted movements.
	ThrottleMS int `koanf:"throttle_ms"`

	// FlushIntervalMS is the period of trail deliveries.
	FlushIntervalMS int `koanf:"flush_interval_ms"`

	// BufferCapacity bounds the number of buffered samples.
	BufferCapacity int `koanf:"buffer_capacity"`

	// ProbeTimeoutMS bounds each asynchronous probe; 0 disables the bound.
	ProbeTimeoutMS int `koanf:"probe_timeout_ms"`

	// RequestTimeoutMS bounds each outbound request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// BeaconQueueSize bounds deliveries queued at teardown.
	BeaconQueueSize int `koanf:"beacon_queue_size"`

	// Compress gzips request bodies.
	Compress bool `koanf:"compress"`

	// HTTP2 negotiates HTTP/2 with TLS endpoints.
	HTTP2 bool `koanf:"http2"`

	// CollectorAddr is the listen address of the development collector.
	CollectorAddr string `koanf:"collector_addr"`

	// SinkPath is the SQLite file the collector stores payloads in.
	SinkPath string `koanf:"sink_path"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Endpoint:         "http://127.0.0.1:9080",
		PageURL:          "app://watchtower",
		ThrottleMS:       50,
		FlushIntervalMS:  5000,
		BufferCapacity:   1000,
		ProbeTimeoutMS:   2000,
		RequestTimeoutMS: 10000,
		BeaconQueueSize:  64,
		CollectorAddr:    ":9080",
		SinkPath:         "watchtower.db",
	}
}

// Validate checks the agent settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.Endpoint)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("%w: buffer_capacity must be positive", ErrInvalidConfig)
	}
	if c.FlushIntervalMS <= 0 {
		return fmt.Errorf("%w: flush_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.ThrottleMS < 0 {
		return fmt.Errorf("%w: throttle_ms must not be negative", ErrInvalidConfig)
	}
	if c.ProbeTimeoutMS < 0 {
		return fmt.Errorf("%w: probe_timeout_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Throttle returns ThrottleMS as a duration.
func (c *Config) Throttle() time.Duration { return ms(c.ThrottleMS) }

// FlushInterval returns FlushIntervalMS as a duration.
func (c *Config) FlushInterval() time.Duration { return ms(c.FlushIntervalMS) }

// ProbeTimeout returns ProbeTimeoutMS as a duration.
func (c *Config) ProbeTimeout() time.Duration { return ms(c.ProbeTimeoutMS) }

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration { return ms(c.RequestTimeoutMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
