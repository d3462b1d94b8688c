package worker

import (
	"sync/atomic"

	"github.com/okian/appraiser/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// withBusy shares the pool's busy counter with the worker.
func withBusy(b *busyCounter) Option {
	return func(w *InMemoryWorker) {
		w.busy = b
	}
}

// withDraining makes the worker fail jobs once the pool is shutting down.
func withDraining(flag *atomic.Bool) Option {
	return func(w *InMemoryWorker) {
		w.draining = flag
	}
}
