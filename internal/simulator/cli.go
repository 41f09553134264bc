package simulator

import (
	"fmt"
	"os"

	"github.com/okian/courtside/pkg/logger"
)

// SetupLogging initializes the global logger for the simulator.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`courtside game simulator
========================

Replays synthetic basketball games against a running courtside service.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -games int
        Number of concurrent games (default 20)
  -workers int
        Number of concurrent posting workers (default CPU cores)
  -tick duration
        Delay between updates of the same game (default 3s)
  -timeout duration
        HTTP request timeout (default 10s)
  -seed uint
        Timeline seed; equal seeds replay equal games (default 1)
  -output string
        Write the generated timelines to this JSON file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -games 50 -tick 500ms
  go run ./cmd/simulate -seed 42 -output games.json
`)
}
