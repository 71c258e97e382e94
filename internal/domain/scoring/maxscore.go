// Package scoring computes per-metric contributions: the theoretical maximum
// of a catalog and the display/normalized contribution of a raw value.
package scoring

import (
	"sync"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
)

// Configuration issues reported by the max-score calculation.
const (
	IssueMissingMax = "missing or zero maximum bound"
)

// Warning flags a metric whose configuration could not contribute to the
// maximum. Warnings never abort a calculation.
type Warning struct {
	MetricID   int64  `json:"metric_id"`
	MetricName string `json:"metric_name"`
	Issue      string `json:"issue"`
}

// MaxScore is the theoretical maximum weighted total of a catalog.
type MaxScore struct {
	// Total is the sum of max raw value x weight over all metrics.
	Total float64 `json:"total"`
	// Corrected applies normalization factors to each product. It equals
	// Total when no profile is involved.
	Corrected float64   `json:"corrected"`
	Version   uint64    `json:"catalog_version"`
	Warnings  []Warning `json:"warnings,omitempty"`
}

// Contribution is one metric's share of the maximum possible score.
type Contribution struct {
	Metric            model.Metric `json:"metric"`
	MaxRawValue       float64      `json:"max_raw_value"`
	Weight            int          `json:"weight"`
	MaxWeightedPoints float64      `json:"max_weighted_points"`
	PercentOfTotal    float64      `json:"percent_of_total"`
	Misconfigured     bool         `json:"misconfigured"`
	Issue             string       `json:"issue,omitempty"`
}

// MaximumPossibleScore sums max raw value x weight over the catalog.
// Metrics without a positive upper bound contribute 0 and are reported as
// warnings.
func MaximumPossibleScore(cat *catalog.Catalog) MaxScore {
	return maximum(cat, DefaultProfile())
}

func maximum(cat *catalog.Catalog, p Profile) MaxScore {
	out := MaxScore{Version: cat.Version()}
	for _, m := range cat.List() {
		maxRaw, ok := usableMax(m)
		if !ok {
			out.Warnings = append(out.Warnings, Warning{MetricID: m.ID, MetricName: m.Name, Issue: IssueMissingMax})
			continue
		}
		points := maxRaw * float64(m.Weight)
		out.Total += points
		out.Corrected += points * p.Factor(m)
	}
	return out
}

// ContributionBreakdown reports each metric's maximum weighted points and its
// percentage of the catalog total.
func ContributionBreakdown(cat *catalog.Catalog) []Contribution {
	total := MaximumPossibleScore(cat).Total
	metrics := cat.List()
	out := make([]Contribution, 0, len(metrics))
	for _, m := range metrics {
		c := Contribution{Metric: m, Weight: m.Weight}
		if maxRaw, ok := usableMax(m); ok {
			c.MaxRawValue = maxRaw
			c.MaxWeightedPoints = maxRaw * float64(m.Weight)
		} else {
			c.Misconfigured = true
			c.Issue = IssueMissingMax
		}
		if total > 0 {
			c.PercentOfTotal = c.MaxWeightedPoints / total * 100
		}
		out = append(out, c)
	}
	return out
}

func usableMax(m model.Metric) (float64, bool) {
	v := m.MaxRaw()
	if v <= 0 {
		return 0, false
	}
	return v, true
}

// MaxScoreCache memoizes the maximum for one catalog version. A lookup with a
// catalog of a different version recomputes; Invalidate forces the next
// lookup to recompute. The zero value is ready to use.
type MaxScoreCache struct {
	mu      sync.Mutex
	valid   bool
	version uint64
	value   MaxScore
	hits    uint64
	misses  uint64
}

// NewMaxScoreCache creates an empty cache.
func NewMaxScoreCache() *MaxScoreCache {
	return &MaxScoreCache{}
}

// Get returns the maximum of cat computed with n's profile, recomputing when
// cat's version differs from the cached one. n may be nil. A cache must be
// used with a single normalizer; it is keyed by catalog version only.
func (c *MaxScoreCache) Get(cat *catalog.Catalog, n *Normalizer) (MaxScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.version == cat.Version() {
		c.hits++
		return c.value, true
	}
	c.misses++
	c.value = n.MaximumPossibleScore(cat)
	c.version = cat.Version()
	c.valid = true
	return c.value, false
}

// Invalidate drops the cached value.
func (c *MaxScoreCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// Stats returns the hit and miss counts since creation.
func (c *MaxScoreCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
