package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/courtside/pkg/logger"
)

const directoryPermission = 0750

// Run generates the configured games and replays them against the service.
// Each game is owned by one worker so its updates arrive in order, Tick apart.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Games <= 0 {
		return nil, errors.New("games must be positive")
	}
	workers := config.Workers
	if workers <= 0 || workers > config.Games {
		workers = config.Games
	}
	log := logger.Get().Named("simulator")
	stats := &Stats{StartTime: time.Now(), Games: config.Games}

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("games", config.Games),
		logger.Int("workers", workers),
		logger.Duration("tick", config.Tick),
		logger.Any("seed", config.Seed))

	c := newClient(config.BaseURL, config.Timeout)
	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	timelines := Generate(config.Games, config.Seed)
	if config.OutputFile != "" {
		if err := saveTimelines(config.OutputFile, timelines); err != nil {
			log.Warn(ctx, "failed to save timelines", logger.Error(err))
		} else {
			log.Info(ctx, "timelines saved", logger.String("filename", config.OutputFile))
		}
	}

	var sent, accepted, debounced, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		var owned []Timeline
		for i := w; i < len(timelines); i += workers {
			owned = append(owned, timelines[i])
		}
		g.Go(func() error {
			for round := 0; ; round++ {
				active := false
				for _, t := range owned {
					if round >= len(t.Updates) {
						continue
					}
					active = true
					sent.Add(1)
					switch c.post(gctx, t.Updates[round]) {
					case outcomeAccepted:
						accepted.Add(1)
					case outcomeDebounced:
						debounced.Add(1)
					default:
						failed.Add(1)
					}
				}
				if !active {
					return nil
				}
				if config.Verbose {
					log.Debug(gctx, "round posted", logger.Int("round", round), logger.Int("games", len(owned)))
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(config.Tick):
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("update submission failed: %w", err)
	}

	stats.UpdatesSent = int(sent.Load())
	stats.Accepted = int(accepted.Load())
	stats.Debounced = int(debounced.Load())
	stats.Failed = int(failed.Load())

	if n, err := c.signals(ctx); err != nil {
		log.Warn(ctx, "failed to fetch signals", logger.Error(err))
	} else {
		stats.SignalsActive = n
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func saveTimelines(filename string, timelines []Timeline) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(timelines, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal timelines: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.UpdatesSent) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("games", stats.Games),
		logger.Int("updatesSent", stats.UpdatesSent),
		logger.Int("accepted", stats.Accepted),
		logger.Int("debounced", stats.Debounced),
		logger.Int("failed", stats.Failed),
		logger.Int("signalsActive", stats.SignalsActive),
		logger.Duration("duration", stats.Duration),
		logger.Float64("updatesPerSecond", perSecond))
}
