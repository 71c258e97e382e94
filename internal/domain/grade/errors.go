package grade

import "errors"

// ErrInvalidCutoffs is returned when band cutoffs are not ordered within
// [0, 100].
var ErrInvalidCutoffs = errors.New("invalid grade cutoffs")
