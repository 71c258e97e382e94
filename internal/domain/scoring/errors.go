package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidFactor = errors.New("normalization factor must be in (0, 1]")
	ErrOutOfRange    = errors.New("raw value outside metric bounds")
)
