// Package simulator generates synthetic basketball games and replays them
// against a running service through the update webhook.
package simulator

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Games      int           // Number of concurrent games
	Workers    int           // Number of concurrent posting workers
	Tick       time.Duration // Delay between rounds of updates
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Timeline seed; equal seeds give equal games
	OutputFile string        // Output file for generated timelines
	Verbose    bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	Games         int
	UpdatesSent   int
	Accepted      int
	Debounced     int
	Failed        int
	SignalsActive int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// Default run parameters.
const (
	DefaultGames   = 20
	DefaultTick    = 3 * time.Second
	DefaultTimeout = 10 * time.Second
)
