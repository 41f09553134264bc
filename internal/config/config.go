// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load(ctx) layers a YAML file, a .env file and COURTSIDE_ env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CORSOrigins lists allowed origins for the read API and stream.
	CORSOrigins []string `koanf:"cors_origins"`

	// QueueSize bounds each shard's in-memory update queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of shard workers; updates for one game
	// always land on the same worker.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount configures the number of lock shards in the live-state cache.
	ShardCount int `koanf:"shard_count"`

	// StalenessWindowMS evicts live/halftime games not updated within the window.
	StalenessWindowMS int `koanf:"staleness_window_ms"`

	// DebounceWindowMS and DebounceMax bound admitted updates per game per window.
	DebounceWindowMS int `koanf:"debounce_window_ms"`
	DebounceMax      int `koanf:"debounce_max"`

	// ExpiryQuarter and ExpiryClock define the watching cutoff: a signal
	// expires once the game is in ExpiryQuarter with less than ExpiryClock left,
	// or in any overtime period.
	ExpiryQuarter int    `koanf:"expiry_quarter"`
	ExpiryClock   string `koanf:"expiry_clock"`

	// SinkTimeoutMS bounds each fire-and-forget sink call.
	SinkTimeoutMS int `koanf:"sink_timeout_ms"`

	// SweepSpec and StrategyRefreshSpec are cron expressions with a seconds field.
	SweepSpec           string `koanf:"sweep_spec"`
	StrategyRefreshSpec string `koanf:"strategy_refresh_spec"`

	// StrategiesFile points to a YAML strategy document. Used when PostgresDSN is empty.
	StrategiesFile string `koanf:"strategies_file"`

	// PostgresDSN enables the signal store and the strategies table source.
	PostgresDSN string `koanf:"postgres_dsn"`

	// Redis event bus.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisChannel  string `koanf:"redis_channel"`
	RedisStream   string `koanf:"redis_stream"`

	// Notification senders; each is enabled when its credentials are set.
	ChatWebhookURL string  `koanf:"chat_webhook_url"`
	TelegramToken  string  `koanf:"telegram_token"`
	TelegramChatID string  `koanf:"telegram_chat_id"`
	NotifyRPS      float64 `koanf:"notify_rps"`

	// AMQP ingress; disabled when AMQPURL is empty.
	AMQPURL   string `koanf:"amqp_url"`
	AMQPQueue string `koanf:"amqp_queue"`

	// S3 archive of final games; disabled when S3Bucket is empty.
	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		CORSOrigins:         []string{"*"},
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		ShardCount:          16,
		StalenessWindowMS:   20_000,
		DebounceWindowMS:    5_000,
		DebounceMax:         2,
		ExpiryQuarter:       4,
		ExpiryClock:         "2:20",
		SinkTimeoutMS:       5_000,
		SweepSpec:           "*/5 * * * * *",
		StrategyRefreshSpec: "0 * * * * *",
		StrategiesFile:      "strategies.yaml",
		RedisChannel:        "courtside:events",
		RedisStream:         "courtside:events:stream",
		NotifyRPS:           1,
		AMQPQueue:           "courtside.game_updates",
		S3Region:            "us-east-1",
	}
}

// StalenessWindow returns the eviction window as a duration.
func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.StalenessWindowMS) * time.Millisecond
}

// DebounceWindow returns the debounce window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMS) * time.Millisecond
}

// SinkTimeout returns the per-call sink timeout as a duration.
func (c *Config) SinkTimeout() time.Duration {
	return time.Duration(c.SinkTimeoutMS) * time.Millisecond
}
