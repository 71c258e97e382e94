package service

import "github.com/okian/engage/internal/domain/report"

// Sentinel kinds for service errors. They are the report sentinels so that
// callers holding only the report package can match them.
var (
	ErrNotStarted     = report.ErrNotReady
	ErrClientNotFound = report.ErrClientNotFound
)
