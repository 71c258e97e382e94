package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/scoresheet"
	"github.com/okian/engage/internal/domain/scoring"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

// engine is one consistent snapshot of the catalog, the score records and
// the scoring pipeline built from them.
type engine struct {
	cat        *catalog.Catalog
	records    []model.ScoreRecord
	observed   map[int64]float64
	normalizer *scoring.Normalizer
	agg        *scoresheet.Aggregator
	max        scoring.MaxScore
}

// engine snapshots the store and builds the scoring pipeline for it.
// Realistic maxima come from configuration first and from the largest
// bounded value otherwise.
func (s *Service) engine(ctx context.Context, f repository.Filter) (*engine, error) {
	cat, err := catalog.Load(ctx, s.store)
	if err != nil {
		metrics.RecordErrorByComponent("store", "fetch_metrics")
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	// Observed maxima span every client so that normalized scores stay
	// comparable between a single client and the whole book.
	all, err := s.store.FetchScoreRecords(ctx, repository.Filter{})
	if err != nil {
		metrics.RecordErrorByComponent("store", "fetch_records")
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	observed := scoring.ObservedMaxima(all)
	bounded := scoring.NewNormalizer(scoring.WithClampPolicy(s.clampPolicy)).BoundedMaxima(cat, all)

	realistic := make(map[int64]float64, cat.Len())
	for _, m := range cat.List() {
		if v, ok := s.realisticMax[strings.ToLower(strings.TrimSpace(m.Name))]; ok && v > 0 {
			realistic[m.ID] = v
			continue
		}
		if v, ok := bounded[m.ID]; ok {
			realistic[m.ID] = v
		}
	}

	n := scoring.NewNormalizer(
		scoring.WithProfile(s.profile),
		scoring.WithRealisticMax(realistic),
		scoring.WithClampPolicy(s.clampPolicy),
	)

	max, hit := s.cache.Get(cat, n)
	metrics.RecordMaxScoreCache(hit)
	if !hit {
		metrics.UpdateCatalog(cat.Len(), max.Total, len(max.Warnings))
		for _, w := range max.Warnings {
			s.logger.Warn(ctx, "metric contributes nothing to the maximum score",
				logger.Int64("metric_id", w.MetricID),
				logger.String("metric", w.MetricName),
				logger.String("issue", w.Issue),
			)
		}
	}

	records := make([]model.ScoreRecord, 0, len(all))
	for _, r := range all {
		if f.Match(r) {
			records = append(records, r)
		}
	}

	return &engine{
		cat:        cat,
		records:    records,
		observed:   observed,
		normalizer: n,
		agg:        scoresheet.NewAggregator(scoresheet.WithNormalizer(n), scoresheet.WithLocation(s.loc)),
		max:        max,
	}, nil
}

// observeSheets reports the data-quality counters of resolved scoresheets.
func (s *Service) observeSheets(ctx context.Context, clientID int64, w scoresheet.Warnings, sheets int, start time.Time) {
	metrics.RecordAggregation(sheets, float64(time.Since(start).Microseconds())/1000)
	metrics.RecordFlagged(metrics.KindUnknownMetric, w.UnknownMetric)
	metrics.RecordFlagged(metrics.KindClamped, w.Clamped)
	metrics.RecordFlagged(metrics.KindRejected, w.Rejected)
	metrics.RecordFlagged(metrics.KindSuperseded, w.Superseded)

	if w.UnknownMetric > 0 {
		s.logger.Warn(ctx, "score records reference unknown metrics",
			logger.Int64("client_id", clientID),
			logger.Int("records", w.UnknownMetric),
			logger.Any("metric_ids", w.UnknownMetricIDs),
		)
	}
	if w.Clamped > 0 || w.Rejected > 0 {
		s.logger.Debug(ctx, "out-of-range score values",
			logger.Int64("client_id", clientID),
			logger.Int("clamped", w.Clamped),
			logger.Int("rejected", w.Rejected),
		)
	}
}
