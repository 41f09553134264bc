package repository

import "errors"

// Sentinel kinds for live-state errors.
var (
	ErrNotFound = errors.New("game not found")
	ErrClosed   = errors.New("store closed")
)
