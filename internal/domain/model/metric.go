// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// MetricKind tags how a metric's raw value is entered and bounded.
type MetricKind int

const (
	// KindContinuous metrics accept any number within [Min, Max].
	KindContinuous MetricKind = iota
	// KindDiscrete metrics accept one of an enumerated set of option values.
	KindDiscrete
)

// String returns the configuration spelling of the kind.
func (k MetricKind) String() string {
	switch k {
	case KindContinuous:
		return "continuous"
	case KindDiscrete:
		return "discrete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseMetricKind accepts the configuration spellings of a kind.
// "number" and "select" are accepted as aliases used by older exports.
func ParseMetricKind(s string) (MetricKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continuous", "number":
		return KindContinuous, nil
	case "discrete", "select":
		return KindDiscrete, nil
	default:
		return 0, fmt.Errorf("unknown metric kind %q", s)
	}
}

// MetricOption is one selectable value of a discrete metric.
type MetricOption struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Metric is a scored dimension of engagement.
type Metric struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Weight int        `json:"weight"`
	Kind   MetricKind `json:"kind"`

	// Min and Max bound continuous metrics. Ignored for discrete metrics.
	Min float64 `json:"min"`
	Max float64 `json:"max"`

	Options []MetricOption `json:"options,omitempty"`

	HighThreshold float64 `json:"high_threshold"`
	LowThreshold  float64 `json:"low_threshold"`
}

// MaxRaw returns the largest raw value the metric can record, or 0 when the
// metric declares no usable upper bound.
func (m Metric) MaxRaw() float64 {
	if m.Kind == KindDiscrete {
		if len(m.Options) == 0 {
			return 0
		}
		best := m.Options[0].Value
		for _, o := range m.Options[1:] {
			if o.Value > best {
				best = o.Value
			}
		}
		return best
	}
	return m.Max
}

// MinRaw returns the smallest raw value the metric can record.
func (m Metric) MinRaw() float64 {
	if m.Kind == KindDiscrete {
		if len(m.Options) == 0 {
			return 0
		}
		least := m.Options[0].Value
		for _, o := range m.Options[1:] {
			if o.Value < least {
				least = o.Value
			}
		}
		return least
	}
	return m.Min
}

// Level classifies a raw value against the metric's thresholds.
func (m Metric) Level(raw float64) ThresholdLevel {
	switch {
	case raw >= m.HighThreshold:
		return LevelHigh
	case raw <= m.LowThreshold:
		return LevelLow
	default:
		return LevelNormal
	}
}

// ThresholdLevel is the classification of a raw value against a metric's
// high and low thresholds.
type ThresholdLevel string

// Threshold levels.
const (
	LevelHigh   ThresholdLevel = "high"
	LevelNormal ThresholdLevel = "normal"
	LevelLow    ThresholdLevel = "low"
)
