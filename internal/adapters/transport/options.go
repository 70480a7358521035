package transport

import (
	"net/http"
	"time"

	"github.com/okian/watchtower/pkg/logger"
)

// Option applies a configuration option to the HTTP transport.
type Option func(*HTTP)

// WithClient replaces the HTTP client. WithTimeout and WithHTTP2 are
// ignored when a client is supplied.
func WithClient(c *http.Client) Option {
	return func(t *HTTP) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTP) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithCompression gzips request bodies.
func WithCompression(enabled bool) Option {
	return func(t *HTTP) {
		t.compress = enabled
	}
}

// WithHTTP2 negotiates HTTP/2 on TLS endpoints.
func WithHTTP2(enabled bool) Option {
	return func(t *HTTP) {
		t.http2 = enabled
	}
}

// WithQueueSize sets how many beacons may wait for delivery.
func WithQueueSize(n int) Option {
	return func(t *HTTP) {
		if n > 0 {
			t.queueSize = n
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(l logger.Logger) Option {
	return func(t *HTTP) {
		if l != nil {
			t.log = l
		}
	}
}
