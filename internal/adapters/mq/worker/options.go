package worker

import (
	"github.com/okian/courtside/pkg/logger"
)

// Option applies a configuration option to the ShardWorker.
type Option func(*ShardWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *ShardWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *ShardWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
