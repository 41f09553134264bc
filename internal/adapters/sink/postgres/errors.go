package postgres

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNotFound = errors.New("postgres: not found")
)
