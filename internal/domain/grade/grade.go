// Package grade maps a percentage of the maximum possible score to a
// performance band.
package grade

import (
	"fmt"
	"math"
)

// Band is a performance status.
type Band string

const (
	Excellent        Band = "excellent"
	Good             Band = "good"
	NeedsImprovement Band = "needs_improvement"
	Critical         Band = "critical"
)

var labels = map[Band]string{
	Excellent:        "Excellent",
	Good:             "Good",
	NeedsImprovement: "Needs Improvement",
	Critical:         "Critical",
}

// Label returns the human readable name of the band.
func (b Band) Label() string { return labels[b] }

// Grade is the classification of one percentage.
type Grade struct {
	Band  Band   `json:"band"`
	Label string `json:"label"`
}

// Cutoffs are the inclusive lower bounds of each band above Critical.
type Cutoffs struct {
	Excellent        float64 `json:"excellent"`
	Good             float64 `json:"good"`
	NeedsImprovement float64 `json:"needs_improvement"`
}

// DefaultCutoffs returns 85 / 70 / 50.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{Excellent: 85, Good: 70, NeedsImprovement: 50}
}

// Validate checks that cutoffs are strictly descending within [0, 100].
func (c Cutoffs) Validate() error {
	for _, v := range []float64{c.Excellent, c.Good, c.NeedsImprovement} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: %v outside [0, 100]", ErrInvalidCutoffs, v)
		}
	}
	if !(c.Excellent > c.Good && c.Good > c.NeedsImprovement) {
		return fmt.Errorf("%w: want excellent > good > needs improvement, got %v / %v / %v",
			ErrInvalidCutoffs, c.Excellent, c.Good, c.NeedsImprovement)
	}
	return nil
}

// Classifier assigns bands to percentages.
type Classifier struct {
	cutoffs Cutoffs
}

// NewClassifier creates a Classifier with configuration options.
func NewClassifier(opts ...Option) (*Classifier, error) {
	c := &Classifier{cutoffs: DefaultCutoffs()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.cutoffs.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Cutoffs returns the configured cutoffs.
func (c *Classifier) Cutoffs() Cutoffs { return c.cutoffs }

// Classify maps pct to a band. pct is clamped into [0, 100] first; NaN is
// Critical.
func (c *Classifier) Classify(pct float64) Grade {
	pct = Clamp(pct)
	b := Critical
	switch {
	case pct >= c.cutoffs.Excellent:
		b = Excellent
	case pct >= c.cutoffs.Good:
		b = Good
	case pct >= c.cutoffs.NeedsImprovement:
		b = NeedsImprovement
	}
	return Grade{Band: b, Label: b.Label()}
}

// Percentage returns total as a percentage of maximum, or 0 when maximum is
// not positive.
func Percentage(total, maximum float64) float64 {
	if maximum <= 0 || math.IsNaN(total) {
		return 0
	}
	return total / maximum * 100
}

// Clamp bounds pct to [0, 100]. NaN becomes 0.
func Clamp(pct float64) float64 {
	switch {
	case math.IsNaN(pct) || pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Display formats a total against its maximum, e.g. "17.0/35 (48.6%)".
func Display(total, maximum float64) string {
	return fmt.Sprintf("%.1f/%.0f (%.1f%%)", total, maximum, Percentage(total, maximum))
}
