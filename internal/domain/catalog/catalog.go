// Package catalog holds immutable snapshots of metric definitions.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/engage/internal/domain/model"
)

// Source fetches metric definitions from a storage collaborator.
type Source interface {
	FetchMetrics(ctx context.Context) ([]model.Metric, error)
}

// Catalog is a read-only, ordered view over metric definitions.
// A Catalog never changes after New returns; editing metrics means building
// a new Catalog, which carries a new Version.
type Catalog struct {
	metrics []model.Metric
	byID    map[int64]int
	version uint64
}

// New validates metrics and builds a snapshot. Every violated invariant is
// reported; the returned error wraps ErrInvalidMetric.
func New(metrics []model.Metric, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		metrics: make([]model.Metric, 0, len(metrics)),
		byID:    make(map[int64]int, len(metrics)),
	}

	var errs []error
	for _, m := range metrics {
		if err := Validate(m); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.byID[m.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate metric id %d", ErrInvalidMetric, m.ID))
			continue
		}
		m.Options = append([]model.MetricOption(nil), m.Options...)
		c.byID[m.ID] = len(c.metrics)
		c.metrics = append(c.metrics, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c.version = contentVersion(c.metrics)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Load builds a catalog from src.
func Load(ctx context.Context, src Source, opts ...Option) (*Catalog, error) {
	metrics, err := src.FetchMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	return New(metrics, opts...)
}

// Validate checks a single metric definition against the model invariants.
func Validate(m model.Metric) error {
	var errs []error
	if m.Weight < 1 {
		errs = append(errs, fmt.Errorf("weight %d must be >= 1", m.Weight))
	}
	if m.HighThreshold < m.LowThreshold {
		errs = append(errs, fmt.Errorf("high threshold %v below low threshold %v", m.HighThreshold, m.LowThreshold))
	}
	switch m.Kind {
	case model.KindDiscrete:
		if len(m.Options) == 0 {
			errs = append(errs, errors.New("discrete metric has no options"))
		}
		seen := make(map[float64]struct{}, len(m.Options))
		for _, o := range m.Options {
			if _, dup := seen[o.Value]; dup {
				errs = append(errs, fmt.Errorf("duplicate option value %v", o.Value))
			}
			seen[o.Value] = struct{}{}
		}
	case model.KindContinuous:
		if m.Max < m.Min {
			errs = append(errs, fmt.Errorf("max %v below min %v", m.Max, m.Min))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %v", m.Kind))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: metric %d (%s): %w", ErrInvalidMetric, m.ID, m.Name, errors.Join(errs...))
}

// List returns the metrics in catalog order.
func (c *Catalog) List() []model.Metric {
	if c == nil {
		return nil
	}
	out := make([]model.Metric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Get returns the metric with id or ErrMetricNotFound.
func (c *Catalog) Get(id int64) (model.Metric, error) {
	if m, ok := c.Lookup(id); ok {
		return m, nil
	}
	return model.Metric{}, fmt.Errorf("%w: %d", ErrMetricNotFound, id)
}

func (c *Catalog) index(id int64) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.byID[id]
	return i, ok
}

// Lookup is Get without the error allocation, for hot loops.
func (c *Catalog) Lookup(id int64) (model.Metric, bool) {
	i, ok := c.index(id)
	if !ok {
		return model.Metric{}, false
	}
	return c.metrics[i], true
}

// Len returns the number of metrics.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.metrics)
}

// Version identifies the catalog content. Two catalogs built from the same
// definitions share a version.
func (c *Catalog) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}

// With returns a new catalog with m added, or replacing the metric with the
// same id.
func (c *Catalog) With(m model.Metric) (*Catalog, error) {
	metrics := c.List()
	if i, ok := c.index(m.ID); ok {
		metrics[i] = m
	} else {
		metrics = append(metrics, m)
	}
	return New(metrics)
}

// Without returns a new catalog with the metric id removed.
func (c *Catalog) Without(id int64) *Catalog {
	metrics := make([]model.Metric, 0, c.Len())
	for _, m := range c.List() {
		if m.ID != id {
			metrics = append(metrics, m)
		}
	}
	// Removing a metric cannot violate any invariant of the remaining ones.
	out, _ := New(metrics)
	return out
}

func contentVersion(metrics []model.Metric) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 64)
	for _, m := range metrics {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, m.ID, 10)
		buf = append(buf, '|')
		buf = append(buf, m.Name...)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, int64(m.Weight), 10)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, int64(m.Kind), 10)
		for _, f := range []float64{m.Min, m.Max, m.HighThreshold, m.LowThreshold} {
			buf = append(buf, '|')
			buf = strconv.AppendUint(buf, math.Float64bits(f), 16)
		}
		for _, o := range m.Options {
			buf = append(buf, '|')
			buf = append(buf, o.Label...)
			buf = append(buf, '=')
			buf = strconv.AppendUint(buf, math.Float64bits(o.Value), 16)
		}
		buf = append(buf, '\n')
		_, _ = d.Write(buf)
	}
	v := d.Sum64()
	if v == 0 {
		v = 1
	}
	return v
}
