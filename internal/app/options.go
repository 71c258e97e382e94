package service

import (
	"time"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/grade"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/scoring"
	"github.com/okian/engage/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the score store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the time zone that defines reporting dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClampPolicy sets the out-of-range policy.
func WithClampPolicy(p scoring.ClampPolicy) Option {
	return func(s *Service) {
		s.clampPolicy = p
	}
}

// WithNormalizationFactors sets correction factors by metric name.
func WithNormalizationFactors(byName map[string]float64) Option {
	return func(s *Service) {
		s.factors = byName
	}
}

// WithRealisticMax sets realistic maxima by metric name.
func WithRealisticMax(byName map[string]float64) Option {
	return func(s *Service) {
		s.realisticMax = byName
	}
}

// WithTrendThreshold sets the trend threshold.
func WithTrendThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 {
			s.trendThreshold = t
		}
	}
}

// WithCutoffs sets the grade band cutoffs. They are validated by Start.
func WithCutoffs(c grade.Cutoffs) Option {
	return func(s *Service) {
		s.cutoffs = c
	}
}

// WithDashboardSchedule sets the cron spec, with seconds, for periodic
// dashboard refreshes. Empty disables the schedule.
func WithDashboardSchedule(spec string) Option {
	return func(s *Service) {
		s.schedule = spec
	}
}

// WithDashboardConcurrency bounds per-client work during a refresh.
func WithDashboardConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDashboardMovers sets how many improving and declining clients the
// dashboard keeps.
func WithDashboardMovers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.movers = n
		}
	}
}

// WithIdempotencyKeys sets how many score batch idempotency keys are
// remembered. n <= 0 remembers every key.
func WithIdempotencyKeys(n int) Option {
	return func(s *Service) {
		s.idempotency = n
	}
}

// WithSeedMetrics sets metric definitions written to an empty store on Start.
func WithSeedMetrics(metrics []model.Metric) Option {
	return func(s *Service) {
		s.seed = metrics
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
