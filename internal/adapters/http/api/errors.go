package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBadClient  = errors.New("invalid client id")
	ErrBadTime    = errors.New("invalid time; must be RFC3339 or YYYY-MM-DD")
)
