package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/courtside/internal/adapters/archive"
	"github.com/okian/courtside/internal/adapters/http/api"
	"github.com/okian/courtside/internal/adapters/http/swagger"
	"github.com/okian/courtside/internal/adapters/mq/amqpfeed"
	"github.com/okian/courtside/internal/adapters/notify"
	"github.com/okian/courtside/internal/adapters/sink"
	"github.com/okian/courtside/internal/adapters/sink/postgres"
	"github.com/okian/courtside/internal/adapters/sink/redisbus"
	"github.com/okian/courtside/internal/adapters/strategysource"
	app "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/config"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/settlement"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	postgresMaxConns      = 10
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> .env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	hub := api.NewHub(cfg.CORSOrigins, log.Named("stream"))
	opts, cleanup, err := buildOptions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()
	opts = append(opts, app.WithSinks(hub))

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, hub, cfg.CORSOrigins),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	if cfg.AMQPURL != "" {
		feed := amqpfeed.New(cfg.AMQPURL, cfg.AMQPQueue, svc, log.Named("amqp"))
		g.Go(func() error { return feed.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "service stop failed", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// buildOptions turns cfg into service options, connecting the optional
// backends it names. cleanup releases every opened connection.
func buildOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]app.Option, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithShardCount(cfg.ShardCount),
		app.WithStalenessWindow(cfg.StalenessWindow()),
		app.WithDebounce(cfg.DebounceWindow(), cfg.DebounceMax),
		app.WithExpiry(settlement.Expiry{Quarter: cfg.ExpiryQuarter, ClockSeconds: cfg.ExpiryClockSeconds()}),
		app.WithSinkTimeout(cfg.SinkTimeout()),
		app.WithSweepSpec(cfg.SweepSpec),
		app.WithRefreshSpec(cfg.StrategyRefreshSpec),
	}

	if cfg.PostgresDSN != "" {
		pg, err := postgres.New(ctx, cfg.PostgresDSN, postgresMaxConns)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if err := pg.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		store := postgres.NewSignalStore(pg.Pool())
		opts = append(opts,
			app.WithStrategySource(postgres.NewStrategyStore(pg.Pool())),
			app.WithSinks(store),
			app.WithSignalRestorer(store),
		)
	} else {
		opts = append(opts, app.WithStrategySource(strategysource.NewFile(cfg.StrategiesFile)))
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisbus.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		opts = append(opts, app.WithSinks(redisbus.New(rdb, cfg.RedisChannel, cfg.RedisStream)))
	}

	if s := notifySink(cfg, log); s != nil {
		opts = append(opts, app.WithSinks(s))
	}

	if cfg.S3Bucket != "" {
		arch, err := archive.New(ctx, archive.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("failed to configure archive: %w", err)
		}
		opts = append(opts, app.WithArchiver(arch))
	}

	return opts, cleanup, nil
}

// notifySink returns a notifier over the configured senders, or nil when
// none is configured. Only bet and settlement events are announced.
func notifySink(cfg *config.Config, log logger.Logger) sink.Sink {
	var senders []notify.Sender
	if cfg.ChatWebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.ChatWebhookURL))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if len(senders) == 0 {
		return nil
	}
	events := []model.EventType{model.EventBetTaken, model.EventSignalSettled}
	return notify.NewNotifier(senders, events, cfg.NotifyRPS, log.Named("notify"))
}

// newHandler builds the router: business API, docs and CORS.
func newHandler(ctx context.Context, svc api.Dependencies, hub *api.Hub, origins []string) http.Handler {
	r := mux.NewRouter()
	api.NewServer(svc, hub).Register(ctx, r)
	swagger.Register(ctx, r)

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

// startSystemMetricsUpdater refreshes process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
