package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
)

const defaultFactor = 1.0

// Profile maps metrics to multiplicative correction factors in (0, 1].
// Factors set by id take precedence over factors set by name. Name lookups
// are case-insensitive.
type Profile struct {
	byID   map[int64]float64
	byName map[string]float64
}

// DefaultProfile applies no correction.
func DefaultProfile() Profile { return Profile{} }

// NewProfile validates factors and builds a Profile.
func NewProfile(byID map[int64]float64, byName map[string]float64) (Profile, error) {
	p := Profile{
		byID:   make(map[int64]float64, len(byID)),
		byName: make(map[string]float64, len(byName)),
	}
	for id, f := range byID {
		if !validFactor(f) {
			return Profile{}, fmt.Errorf("%w: metric %d has %v", ErrInvalidFactor, id, f)
		}
		p.byID[id] = f
	}
	for name, f := range byName {
		if !validFactor(f) {
			return Profile{}, fmt.Errorf("%w: metric %q has %v", ErrInvalidFactor, name, f)
		}
		p.byName[strings.ToLower(strings.TrimSpace(name))] = f
	}
	return p, nil
}

func validFactor(f float64) bool { return f > 0 && f <= 1 }

// Factor returns the correction factor for m, 1.0 when none is configured.
func (p Profile) Factor(m model.Metric) float64 {
	if f, ok := p.byID[m.ID]; ok {
		return f
	}
	if f, ok := p.byName[strings.ToLower(strings.TrimSpace(m.Name))]; ok {
		return f
	}
	return defaultFactor
}

// Normalizer turns raw values into contributions. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	profile      Profile
	realisticMax map[int64]float64
	policy       ClampPolicy
}

// NewNormalizer creates a Normalizer with configuration options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		profile:      DefaultProfile(),
		realisticMax: map[int64]float64{},
		policy:       ClampToBounds,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Policy returns the out-of-range policy.
func (n *Normalizer) Policy() ClampPolicy {
	if n == nil {
		return ClampToBounds
	}
	return n.policy
}

// Factor returns the correction factor applied to m.
func (n *Normalizer) Factor(m model.Metric) float64 {
	if n == nil {
		return defaultFactor
	}
	return n.profile.Factor(m)
}

// Bound applies the out-of-range policy to raw. It returns the value to use
// and whether it was clamped; under RejectOutOfRange it returns ErrOutOfRange
// instead of clamping. Metrics without a positive upper bound are not
// checked against their maximum.
func (n *Normalizer) Bound(m model.Metric, raw float64) (float64, bool, error) {
	lo, hi := m.MinRaw(), m.MaxRaw()
	below := raw < lo || math.IsNaN(raw)
	above := hi > 0 && raw > hi
	if !below && !above {
		return raw, false, nil
	}
	if n.Policy() == RejectOutOfRange {
		return raw, false, fmt.Errorf("%w: metric %d value %v not in [%v, %v]", ErrOutOfRange, m.ID, raw, lo, hi)
	}
	if below {
		return lo, true, nil
	}
	return hi, true, nil
}

// DisplayContribution returns raw x weight x factor. raw is expected to be
// already bounded.
func (n *Normalizer) DisplayContribution(m model.Metric, raw float64) float64 {
	return raw * float64(m.Weight) * n.Factor(m)
}

// NormalizedContribution returns raw divided by the metric's realistic
// maximum (or its theoretical maximum when none is known), clamped to [0, 1].
// A zero maximum yields 0.
func (n *Normalizer) NormalizedContribution(m model.Metric, raw float64) float64 {
	denom := m.MaxRaw()
	if n != nil {
		if v, ok := n.realisticMax[m.ID]; ok {
			denom = v
		}
	}
	if denom <= 0 {
		return 0
	}
	return clamp01(raw / denom)
}

// MaximumPossibleScore is the catalog maximum with this normalizer's factors
// applied to Corrected.
func (n *Normalizer) MaximumPossibleScore(cat *catalog.Catalog) MaxScore {
	if n == nil {
		return MaximumPossibleScore(cat)
	}
	return maximum(cat, n.profile)
}

// ObservedMaxima returns the largest raw value seen per metric across
// records, bounds not applied. Metrics whose largest value is not positive
// are omitted.
func ObservedMaxima(records []model.ScoreRecord) map[int64]float64 {
	out := make(map[int64]float64)
	for _, r := range records {
		if cur, ok := out[r.MetricID]; !ok || r.Value > cur {
			out[r.MetricID] = r.Value
		}
	}
	for id, v := range out {
		if v <= 0 {
			delete(out, id)
		}
	}
	return out
}

// BoundedMaxima returns the largest in-range value per metric. Values the
// out-of-range policy would clamp or reject are skipped, so a single bad
// record cannot move the realistic maximum that every client is normalized
// against. Records of metrics missing from cat are skipped too. Metrics whose
// largest value is not positive are omitted.
func (n *Normalizer) BoundedMaxima(cat *catalog.Catalog, records []model.ScoreRecord) map[int64]float64 {
	out := make(map[int64]float64)
	for _, r := range records {
		m, ok := cat.Lookup(r.MetricID)
		if !ok {
			continue
		}
		v, clamped, err := n.Bound(m, r.Value)
		if err != nil || clamped {
			continue
		}
		if cur, ok := out[r.MetricID]; !ok || v > cur {
			out[r.MetricID] = v
		}
	}
	for id, v := range out {
		if v <= 0 {
			delete(out, id)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
