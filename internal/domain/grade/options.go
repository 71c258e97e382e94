package grade

// Option configures a Classifier.
type Option func(*Classifier)

// WithCutoffs replaces the default band cutoffs.
func WithCutoffs(c Cutoffs) Option {
	return func(cl *Classifier) {
		cl.cutoffs = c
	}
}
