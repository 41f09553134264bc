// Package repository holds the live-state cache of game snapshots.
package repository

import (
	"context"
	"time"

	"github.com/okian/courtside/internal/domain/model"
)

// Store provides read/write access to live game state.
type Store interface {
	// Update merges u onto the stored snapshot (creating it if absent) and
	// returns a copy of the merged result.
	Update(ctx context.Context, u *model.GameUpdate, now time.Time) (*model.GameSnapshot, error)

	// Get returns a copy of the snapshot for id.
	// Returns ErrNotFound if the game is unknown.
	Get(ctx context.Context, id string) (*model.GameSnapshot, error)

	// Remove drops a snapshot regardless of status. Returns false if absent.
	Remove(ctx context.Context, id string) bool

	// EvictStale removes live/halftime snapshots not updated within the
	// staleness window and returns their ids.
	EvictStale(ctx context.Context, now time.Time) []string

	// ListSorted returns copies of all snapshots, games closest to completion first.
	ListSorted(ctx context.Context) []*model.GameSnapshot

	// Count returns the number of tracked games.
	Count(ctx context.Context) int
}
