package debounce

import "time"

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithWindow sets the debounce window.
func WithWindow(d time.Duration) Option {
	return func(g *inMemoryGuard) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithCeiling sets how many updates one window admits.
func WithCeiling(n int) Option {
	return func(g *inMemoryGuard) {
		if n > 0 {
			g.ceiling = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *inMemoryGuard) {
		if now != nil {
			g.now = now
		}
	}
}
