package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("metric not found")
	ErrInvalidRecord = errors.New("invalid score record")
	ErrDuplicateID   = errors.New("duplicate score record id")
)
