package lifecycle

import (
	"time"

	"github.com/okian/courtside/internal/domain/settlement"
	"github.com/okian/courtside/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithExpiry sets the watching cutoff.
func WithExpiry(e settlement.Expiry) Option {
	return func(en *Engine) {
		if e.Quarter > 0 {
			en.expiry = e
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(en *Engine) {
		if now != nil {
			en.now = now
		}
	}
}

// WithIDGenerator replaces uuid generation for signal and event ids.
func WithIDGenerator(gen func() string) Option {
	return func(en *Engine) {
		if gen != nil {
			en.newID = gen
		}
	}
}

// WithStripes sets the number of per-game lock stripes.
func WithStripes(n int) Option {
	return func(en *Engine) {
		if n > 0 {
			en.stripeCount = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(en *Engine) {
		if l != nil {
			en.log = l
		}
	}
}
