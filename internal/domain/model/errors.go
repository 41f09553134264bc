package model

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidValue    = errors.New("invalid value")
	ErrInvalidUpdate   = errors.New("invalid game update")
	ErrInvalidClock    = errors.New("invalid clock")
	ErrInvalidStrategy = errors.New("invalid strategy")
)
