package notify

import "errors"

// Sentinel error kinds for this package.
var (
	ErrSendFailed = errors.New("notify: send failed")
)
