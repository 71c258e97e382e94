// Package service provides the engagement scoring service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/dedupe"
	"github.com/okian/engage/internal/domain/grade"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/report"
	"github.com/okian/engage/internal/domain/scoring"
	"github.com/okian/engage/internal/domain/trend"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

const (
	defaultDashboardConcurrency = 8
	defaultDashboardMovers      = 3
	defaultIdempotencyKeys      = 10000
)

// Service implements the API dependencies for engagement scoring.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	cache      *scoring.MaxScoreCache
	classifier *grade.Classifier
	analyzer   *trend.Analyzer
	profile    scoring.Profile
	scheduler  *cron.Cron
	deduper    dedupe.Deduper

	// Configuration
	loc            *time.Location
	clampPolicy    scoring.ClampPolicy
	factors        map[string]float64
	realisticMax   map[string]float64
	trendThreshold float64
	cutoffs        grade.Cutoffs
	schedule       string
	concurrency    int
	movers         int
	idempotency    int
	seed           []model.Metric
	now            func() time.Time

	// State
	started   bool
	startedAt time.Time
	dashboard atomic.Pointer[report.Dashboard]
	refreshes atomic.Uint64

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cache:          scoring.NewMaxScoreCache(),
		loc:            time.UTC,
		clampPolicy:    scoring.ClampToBounds,
		trendThreshold: trend.DefaultThreshold,
		cutoffs:        grade.DefaultCutoffs(),
		concurrency:    defaultDashboardConcurrency,
		movers:         defaultDashboardMovers,
		idempotency:    defaultIdempotencyKeys,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.idempotency))

	return s
}

// Start validates the configuration, seeds an empty catalog and schedules
// dashboard refreshes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting engagement service...")

	classifier, err := grade.NewClassifier(grade.WithCutoffs(s.cutoffs))
	if err != nil {
		return fmt.Errorf("grade cutoffs: %w", err)
	}
	profile, err := scoring.NewProfile(nil, s.factors)
	if err != nil {
		return fmt.Errorf("normalization profile: %w", err)
	}
	s.classifier = classifier
	s.profile = profile
	s.analyzer = trend.NewAnalyzer(trend.WithThreshold(s.trendThreshold))

	realistic := make(map[string]float64, len(s.realisticMax))
	for name, v := range s.realisticMax {
		realistic[strings.ToLower(strings.TrimSpace(name))] = v
	}
	s.realisticMax = realistic

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if err := s.seedCatalog(ctx); err != nil {
		return err
	}

	if s.schedule != "" {
		s.scheduler = cron.New(cron.WithSeconds(), cron.WithLocation(s.loc))
		_, err := s.scheduler.AddFunc(s.schedule, func() {
			if _, err := s.RefreshDashboard(context.Background()); err != nil {
				s.logger.Error(context.Background(), "scheduled dashboard refresh failed", logger.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("schedule dashboard refresh %q: %w", s.schedule, err)
		}
		s.scheduler.Start()
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "engagement service started",
		logger.String("timezone", s.loc.String()),
		logger.String("clamp_policy", s.clampPolicy.String()),
		logger.Float64("trend_threshold", s.trendThreshold),
		logger.String("dashboard_schedule", s.schedule),
		logger.Bool("scheduled_refresh", s.scheduler != nil),
	)

	return nil
}

func (s *Service) seedCatalog(ctx context.Context) error {
	if len(s.seed) == 0 {
		return nil
	}
	existing, err := s.store.FetchMetrics(ctx)
	if err != nil {
		return fmt.Errorf("fetch metrics: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, m := range s.seed {
		if err := s.store.PutMetric(ctx, m); err != nil {
			return fmt.Errorf("seed metric %q: %w", m.Name, err)
		}
	}
	s.logger.Info(ctx, "seeded metric catalog", logger.Int("metrics", len(s.seed)))
	return nil
}

// Stop gracefully shuts down the service. A refresh already running is
// allowed to finish before the store is closed.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	startedAt := s.startedAt
	scheduler := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping engagement service...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
	}

	s.logger.Info(context.Background(), "engagement service stopped",
		logger.Duration("uptime", s.now().Sub(startedAt)),
	)
}

// ready returns ErrNotStarted until Start succeeds.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// RecordScores appends score records and returns them with their assigned
// ids.
func (s *Service) RecordScores(ctx context.Context, records ...model.ScoreRecord) ([]model.ScoreRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	out, err := s.store.Append(ctx, records...)
	if err != nil {
		metrics.RecordErrorByComponent("service", "append")
		return nil, err
	}
	return out, nil
}

// SeenAndRecord reports whether an idempotency key was already used and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	seen := s.deduper.SeenAndRecord(ctx, key)
	if seen {
		metrics.RecordDuplicateBatch()
	}
	return seen
}

// Unrecord releases an idempotency key after a failed write.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Size returns how many idempotency keys are remembered.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// PutMetric creates or replaces a metric definition.
func (s *Service) PutMetric(ctx context.Context, m model.Metric) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.PutMetric(ctx, m); err != nil {
		return err
	}
	s.cache.Invalidate()
	s.logger.Info(ctx, "metric saved", logger.Int64("metric_id", m.ID), logger.String("metric", m.Name))
	return nil
}

// DeleteMetric removes a metric and returns how many score records were
// removed with it.
func (s *Service) DeleteMetric(ctx context.Context, id int64) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteMetric(ctx, id)
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate()
	s.logger.Info(ctx, "metric deleted",
		logger.Int64("metric_id", id),
		logger.Int("records_removed", removed),
	)
	return removed, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	started, startedAt := s.started, s.startedAt
	s.mu.RUnlock()

	stats := map[string]any{
		"started":            started,
		"timezone":           s.loc.String(),
		"clampPolicy":        s.clampPolicy.String(),
		"trendThreshold":     s.trendThreshold,
		"dashboardSchedule":  s.schedule,
		"dashboardRefreshes": s.refreshes.Load(),
		"idempotencyKeys":    s.deduper.Size(),
	}

	if !started {
		return stats
	}

	stats["uptimeSeconds"] = s.now().Sub(startedAt).Seconds()
	hits, misses := s.cache.Stats()
	stats["maxScoreCacheHits"] = hits
	stats["maxScoreCacheMisses"] = misses

	if counts, err := s.store.Count(ctx); err == nil {
		stats["records"] = counts.Records
		stats["metrics"] = counts.Metrics
		stats["clients"] = counts.Clients
	} else {
		s.logger.Warn(ctx, "failed to count store contents", logger.Error(err))
	}
	if d := s.dashboard.Load(); d != nil {
		stats["dashboardGeneratedAt"] = d.GeneratedAt
	}

	return stats
}
