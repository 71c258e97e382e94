package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrMetricNotFound = errors.New("metric not found")
	ErrInvalidMetric  = errors.New("invalid metric definition")
)
