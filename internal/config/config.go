// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Load layers a YAML file and ENGAGE_ environment variables on top.
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/grade"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/scoring"
	"github.com/robfig/cron/v3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the score store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite data source, e.g. "file:engage.db".
	StoreDSN string `koanf:"store_dsn"`

	// Timezone is the IANA zone that defines reporting dates.
	Timezone string `koanf:"timezone"`

	// ClampPolicy decides what happens to out-of-range values: clamp or reject.
	ClampPolicy string `koanf:"clamp_policy"`

	// TrendThreshold is the relative change separating a trend from noise.
	TrendThreshold float64 `koanf:"trend_threshold"`

	// Grade band cutoffs, as a percentage of the maximum possible score.
	GradeExcellent        float64 `koanf:"grade_excellent"`
	GradeGood             float64 `koanf:"grade_good"`
	GradeNeedsImprovement float64 `koanf:"grade_needs_improvement"`

	// DashboardSchedule is a cron spec (with seconds) for dashboard refreshes.
	// Empty disables the schedule.
	DashboardSchedule string `koanf:"dashboard_schedule"`

	// DashboardConcurrency bounds per-client work during a refresh.
	DashboardConcurrency int `koanf:"dashboard_concurrency"`

	// DashboardMovers is how many improving and declining clients to keep.
	DashboardMovers int `koanf:"dashboard_movers"`

	// IdempotencyKeys is how many score batch idempotency keys are remembered.
	IdempotencyKeys int `koanf:"idempotency_keys"`

	// NormalizationFactors maps metric names to correction factors in (0, 1].
	NormalizationFactors map[string]float64 `koanf:"normalization_factors"`

	// RealisticMax maps metric names to the realistic maximum raw value.
	RealisticMax map[string]float64 `koanf:"realistic_max"`

	// Metrics seeds the catalog when the store has no definitions.
	Metrics []MetricConfig `koanf:"metrics"`
}

// MetricConfig is a metric definition as written in configuration.
type MetricConfig struct {
	ID            int64          `koanf:"id"`
	Name          string         `koanf:"name"`
	Weight        int            `koanf:"weight"`
	Kind          string         `koanf:"kind"`
	Min           float64        `koanf:"min"`
	Max           float64        `koanf:"max"`
	HighThreshold float64        `koanf:"high_threshold"`
	LowThreshold  float64        `koanf:"low_threshold"`
	Options       []OptionConfig `koanf:"options"`
}

// OptionConfig is one discrete option of a metric.
type OptionConfig struct {
	Label string  `koanf:"label"`
	Value float64 `koanf:"value"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StoreDriver:           "memory",
		StoreDSN:              "file:engage.db?_pragma=busy_timeout(5000)",
		Timezone:              "UTC",
		ClampPolicy:           "clamp",
		TrendThreshold:        0.05,
		GradeExcellent:        85,
		GradeGood:             70,
		GradeNeedsImprovement: 50,
		DashboardSchedule:     "0 */3 * * * *",
		DashboardConcurrency:  8,
		DashboardMovers:       3,
		IdempotencyKeys:       10000,
		NormalizationFactors:  map[string]float64{},
		RealisticMax:          map[string]float64{},
	}
}

// Validate reports every invalid setting, each wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Addr == "" {
		invalid("addr must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	switch c.StoreDriver {
	case "memory":
	case "sqlite":
		if c.StoreDSN == "" {
			invalid("store_dsn must not be empty for sqlite")
		}
	default:
		invalid("store_driver must be memory or sqlite, got %q", c.StoreDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		invalid("timezone %q: %v", c.Timezone, err)
	}
	switch c.ClampPolicy {
	case "clamp", "reject":
	default:
		invalid("clamp_policy must be clamp or reject, got %q", c.ClampPolicy)
	}
	if c.TrendThreshold < 0 {
		invalid("trend_threshold must not be negative")
	}
	if err := c.Cutoffs().Validate(); err != nil {
		invalid("%v", err)
	}
	if c.DashboardSchedule != "" {
		if _, err := cron.NewParser(cronFields).Parse(c.DashboardSchedule); err != nil {
			invalid("dashboard_schedule %q: %v", c.DashboardSchedule, err)
		}
	}
	if c.DashboardConcurrency < 1 {
		invalid("dashboard_concurrency must be at least 1")
	}
	if c.DashboardMovers < 0 {
		invalid("dashboard_movers must not be negative")
	}
	if c.IdempotencyKeys < 0 {
		invalid("idempotency_keys must not be negative")
	}
	for name, f := range c.NormalizationFactors {
		if f <= 0 || f > 1 {
			invalid("normalization factor for %q must be in (0, 1], got %v", name, f)
		}
	}
	for name, v := range c.RealisticMax {
		if v <= 0 {
			invalid("realistic max for %q must be positive, got %v", name, v)
		}
	}
	if seed, err := c.CatalogMetrics(); err != nil {
		errs = append(errs, err)
	} else if _, err := catalog.New(seed); err != nil {
		invalid("metrics: %w", err)
	}
	return errors.Join(errs...)
}

// cronFields matches cron.WithSeconds.
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Location returns the configured reporting time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Cutoffs returns the grade band cutoffs.
func (c *Config) Cutoffs() grade.Cutoffs {
	return grade.Cutoffs{
		Excellent:        c.GradeExcellent,
		Good:             c.GradeGood,
		NeedsImprovement: c.GradeNeedsImprovement,
	}
}

// Policy returns the out-of-range policy.
func (c *Config) Policy() scoring.ClampPolicy {
	if c.ClampPolicy == "reject" {
		return scoring.RejectOutOfRange
	}
	return scoring.ClampToBounds
}

// CatalogMetrics converts the configured seed list into metric definitions.
// Metrics without an id are numbered by position, starting at 1. Validate
// reports a position that collides with an explicit id.
func (c *Config) CatalogMetrics() ([]model.Metric, error) {
	out := make([]model.Metric, 0, len(c.Metrics))
	for i, mc := range c.Metrics {
		kind, err := model.ParseMetricKind(mc.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: metrics[%d]: %w", ErrInvalidConfig, i, err)
		}
		m := model.Metric{
			ID:            mc.ID,
			Name:          strings.TrimSpace(mc.Name),
			Weight:        mc.Weight,
			Kind:          kind,
			Min:           mc.Min,
			Max:           mc.Max,
			HighThreshold: mc.HighThreshold,
			LowThreshold:  mc.LowThreshold,
		}
		if m.ID == 0 {
			m.ID = int64(i + 1)
		}
		for _, o := range mc.Options {
			m.Options = append(m.Options, model.MetricOption{Label: o.Label, Value: o.Value})
		}
		out = append(out, m)
	}
	return out, nil
}
