package scoring

// ClampPolicy decides what happens to raw values outside a metric's bounds.
type ClampPolicy int

const (
	// ClampToBounds pulls out-of-range values to the nearest bound.
	ClampToBounds ClampPolicy = iota
	// RejectOutOfRange drops out-of-range values from resolution.
	RejectOutOfRange
)

// String returns the configuration spelling of the policy.
func (p ClampPolicy) String() string {
	if p == RejectOutOfRange {
		return "reject"
	}
	return "clamp"
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithProfile sets the per-metric correction factors.
func WithProfile(p Profile) Option {
	return func(n *Normalizer) {
		n.profile = p
	}
}

// WithRealisticMax sets per-metric realistic maxima used by
// NormalizedContribution. Non-positive entries are ignored.
func WithRealisticMax(maxima map[int64]float64) Option {
	return func(n *Normalizer) {
		n.realisticMax = make(map[int64]float64, len(maxima))
		for id, v := range maxima {
			if v > 0 {
				n.realisticMax[id] = v
			}
		}
	}
}

// WithClampPolicy sets the out-of-range policy.
func WithClampPolicy(p ClampPolicy) Option {
	return func(n *Normalizer) {
		n.policy = p
	}
}
