// Package debounce throttles repeated deliveries for the same game id.
package debounce

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Guard admits a bounded number of updates per key per window and offers an
// advisory in-flight set so two evaluation passes for one key never overlap.
type Guard interface {
	// Admit reports whether an update for id may proceed. A new or elapsed
	// window always admits; otherwise admission stops at the ceiling.
	Admit(ctx context.Context, id string) bool

	// TryEnter marks id in flight. Returns false if it already is.
	TryEnter(ctx context.Context, id string) bool

	// Exit clears the in-flight mark for id.
	Exit(ctx context.Context, id string)

	// Sweep drops windows that have elapsed and returns how many were removed.
	Sweep(ctx context.Context) int

	// Size returns the number of tracked windows.
	Size() int64
}

type window struct {
	start time.Time
	count int
}

// inMemoryGuard implements Guard with two mutex-guarded maps.
type inMemoryGuard struct {
	mu      sync.Mutex
	windows map[string]*window
	size    atomic.Int64

	flightMu sync.Mutex
	inFlight map[string]struct{}

	window  time.Duration
	ceiling int
	now     func() time.Time
}

// NewInMemoryGuard creates a guard with a 5s window and a ceiling of 2.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		window:  5 * time.Second,
		ceiling: 2,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.windows = make(map[string]*window)
	g.inFlight = make(map[string]struct{})
	return g
}

// Admit implements Guard.Admit.
func (g *inMemoryGuard) Admit(_ context.Context, id string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[id]
	if !ok {
		g.windows[id] = &window{start: now, count: 1}
		g.size.Add(1)
		return true
	}
	if now.Sub(w.start) >= g.window {
		w.start = now
		w.count = 1
		return true
	}
	if w.count < g.ceiling {
		w.count++
		return true
	}
	return false
}

// TryEnter implements Guard.TryEnter.
func (g *inMemoryGuard) TryEnter(_ context.Context, id string) bool {
	g.flightMu.Lock()
	defer g.flightMu.Unlock()

	if _, busy := g.inFlight[id]; busy {
		return false
	}
	g.inFlight[id] = struct{}{}
	return true
}

// Exit implements Guard.Exit.
func (g *inMemoryGuard) Exit(_ context.Context, id string) {
	g.flightMu.Lock()
	delete(g.inFlight, id)
	g.flightMu.Unlock()
}

// Sweep implements Guard.Sweep.
func (g *inMemoryGuard) Sweep(_ context.Context) int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, w := range g.windows {
		if now.Sub(w.start) >= g.window {
			delete(g.windows, id)
			removed++
		}
	}
	g.size.Add(int64(-removed))
	return removed
}

// Size implements Guard.Size.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
