package trend

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThreshold sets the relative change that separates a trend from noise.
// Negative values are ignored.
func WithThreshold(t float64) Option {
	return func(a *Analyzer) {
		if t >= 0 {
			a.threshold = t
		}
	}
}
