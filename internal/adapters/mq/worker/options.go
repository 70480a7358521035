package worker

import (
	"github.com/okian/watchtower/pkg/logger"
)

// Option applies a configuration option to the BeaconWorker.
type Option func(*BeaconWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *BeaconWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *BeaconWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
