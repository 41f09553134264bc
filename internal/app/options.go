package service

import (
	"time"

	"github.com/okian/courtside/internal/adapters/sink"
	"github.com/okian/courtside/internal/domain/settlement"
	"github.com/okian/courtside/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of queue shards, each drained by one worker.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the total capacity of the update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithShardCount sets the number of lock shards in the live-state cache.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.storeShards = count
		}
	}
}

// WithStalenessWindow sets how long a live game may go without updates.
func WithStalenessWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleness = d
		}
	}
}

// WithDebounce sets the debounce window and per-window ceiling.
func WithDebounce(window time.Duration, ceiling int) Option {
	return func(s *Service) {
		if window > 0 {
			s.debounceWindow = window
		}
		if ceiling > 0 {
			s.debounceMax = ceiling
		}
	}
}

// WithExpiry sets the watching cutoff.
func WithExpiry(e settlement.Expiry) Option {
	return func(s *Service) {
		if e.Quarter > 0 {
			s.expiry = e
		}
	}
}

// WithSinkTimeout bounds each sink delivery.
func WithSinkTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sinkTimeout = d
		}
	}
}

// WithSinks adds event sinks.
func WithSinks(sinks ...sink.Sink) Option {
	return func(s *Service) {
		for _, sk := range sinks {
			if sk != nil {
				s.sinks = append(s.sinks, sk)
			}
		}
	}
}

// WithStrategySource sets where strategies are loaded from.
func WithStrategySource(src Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithArchiver enables archiving of games when they turn final.
func WithArchiver(a Archiver) Option {
	return func(s *Service) {
		s.archiver = a
	}
}

// WithSignalRestorer sets where in-flight signals are restored from at start.
func WithSignalRestorer(r SignalRestorer) Option {
	return func(s *Service) {
		s.restorer = r
	}
}

// WithSweepSpec sets the cron schedule of the eviction sweep (seconds field
// included).
func WithSweepSpec(spec string) Option {
	return func(s *Service) {
		if spec != "" {
			s.sweepSpec = spec
		}
	}
}

// WithRefreshSpec sets the cron schedule of the strategy refresh.
func WithRefreshSpec(spec string) Option {
	return func(s *Service) {
		if spec != "" {
			s.refreshSpec = spec
		}
	}
}

// WithFinalRetention sets how long final games stay in the cache before the
// sweep removes them together with their signal records.
func WithFinalRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.finalRetention = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
