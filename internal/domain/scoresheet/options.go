package scoresheet

import (
	"time"

	"github.com/okian/engage/internal/domain/scoring"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithNormalizer sets the normalizer used for contributions and bounds.
func WithNormalizer(n *scoring.Normalizer) Option {
	return func(a *Aggregator) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// WithLocation sets the time zone whose calendar dates delimit scoresheets.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}
