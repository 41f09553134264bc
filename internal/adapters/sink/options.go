package sink

import (
	"time"

	"github.com/okian/courtside/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each delivery to a single sink.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithSinks registers sinks at construction.
func WithSinks(sinks ...Sink) Option {
	return func(dp *Dispatcher) {
		for _, s := range sinks {
			if s != nil {
				dp.lanes = append(dp.lanes, &lane{sink: s})
			}
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l logger.Logger) Option {
	return func(dp *Dispatcher) {
		if l != nil {
			dp.log = l
		}
	}
}
