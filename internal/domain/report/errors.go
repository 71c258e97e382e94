package report

import "errors"

// Sentinel kinds for report errors.
var (
	ErrNotReady       = errors.New("service not started")
	ErrClientNotFound = errors.New("client not found")
)
