package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/robfig/cron/v3"
)

const (
	envPrefix     = "COURTSIDE_"
	envConfigPath = "COURTSIDE_CONFIG"
	envDotenvPath = "COURTSIDE_ENV_FILE"
)

// Load builds a Config by layering defaults, optional file, .env and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if COURTSIDE_CONFIG is set
//  3. .env (or COURTSIDE_ENV_FILE), which only fills variables not already set
//  4. env (prefix COURTSIDE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	dotenv := os.Getenv(envDotenvPath)
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, dotenv, err)
	}

	// COURTSIDE_QUEUE_SIZE -> queue_size; keys are flat so underscores stay.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.StalenessWindowMS <= 0:
		return fmt.Errorf("%w: staleness_window_ms must be positive", ErrInvalidConfig)
	case c.DebounceWindowMS <= 0 || c.DebounceMax <= 0:
		return fmt.Errorf("%w: debounce window and max must be positive", ErrInvalidConfig)
	case c.ExpiryQuarter < 1:
		return fmt.Errorf("%w: expiry_quarter must be at least 1", ErrInvalidConfig)
	case c.NotifyRPS <= 0:
		return fmt.Errorf("%w: notify_rps must be positive", ErrInvalidConfig)
	}

	if _, err := model.ParseClock(c.ExpiryClock); err != nil {
		return fmt.Errorf("%w: expiry_clock: %w", ErrInvalidConfig, err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"sweep_spec": c.SweepSpec, "strategy_refresh_spec": c.StrategyRefreshSpec} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// ExpiryClockSeconds returns the parsed expiry cutoff in seconds remaining.
func (c *Config) ExpiryClockSeconds() int {
	s, err := model.ParseClock(c.ExpiryClock)
	if err != nil {
		return 0
	}
	return s
}
