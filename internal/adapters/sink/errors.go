package sink

import "errors"

// Sentinel error kinds for this package.
var (
	ErrTimeout = errors.New("sink delivery timed out")
)
