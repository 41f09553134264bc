package lifecycle

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNotFound      = errors.New("signal not found")
	ErrAlreadyClosed = errors.New("signal already final")
)
