package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/courtside/internal/simulator"
)

const defaultRunTimeout = 30 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		games      = flag.Int("games", simulator.DefaultGames, "Number of concurrent games")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent posting workers")
		tick       = flag.Duration("tick", simulator.DefaultTick, "Delay between updates of the same game")
		timeout    = flag.Duration("timeout", simulator.DefaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 1, "Timeline seed")
		outputFile = flag.String("output", "", "Write the generated timelines to this JSON file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	if err := simulator.SetupLogging(*verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &simulator.Config{
		BaseURL:    *baseURL,
		Games:      *games,
		Workers:    *workers,
		Tick:       *tick,
		Timeout:    *timeout,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}
	if _, err := simulator.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
