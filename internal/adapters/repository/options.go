package repository

import "time"

// Option applies a configuration option to the GameStore.
type Option func(*GameStore)

// WithShardCount sets the number of lock shards.
func WithShardCount(n int) Option {
	return func(s *GameStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithStalenessWindow sets how long a live game may go without updates.
func WithStalenessWindow(d time.Duration) Option {
	return func(s *GameStore) {
		if d > 0 {
			s.staleness = d
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *GameStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
