package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/report"
	"github.com/okian/engage/internal/domain/scoresheet"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

// RefreshDashboard scores every client concurrently and publishes the result
// as the current dashboard.
func (s *Service) RefreshDashboard(ctx context.Context) (*report.Dashboard, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	d, err := s.buildDashboard(ctx)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordDashboardRefresh(false, 0, elapsed, 0)
		metrics.RecordErrorByComponent("service", "dashboard_refresh")
		return nil, err
	}

	s.dashboard.Store(d)
	s.refreshes.Add(1)
	metrics.RecordDashboardRefresh(true, len(d.Clients), elapsed, d.GeneratedAt.Unix())

	s.logger.Info(ctx, "dashboard refreshed",
		logger.String("id", d.ID),
		logger.Int("clients", len(d.Clients)),
		logger.Int("improving", len(d.Improving)),
		logger.Int("declining", len(d.Declining)),
		logger.Duration("duration", time.Since(start)),
	)
	return d, nil
}

func (s *Service) buildDashboard(ctx context.Context) (*report.Dashboard, error) {
	e, err := s.engine(ctx, repository.Filter{})
	if err != nil {
		return nil, err
	}

	byClient := scoresheet.ByClient(e.records)
	ids := make([]int64, 0, len(byClient))
	for id := range byClient {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summaries := make([]report.ClientSummary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			sum := s.summarize(id, &engine{
				cat:        e.cat,
				records:    byClient[id],
				normalizer: e.normalizer,
				agg:        e.agg,
				max:        e.max,
			})
			summaries[i] = sum
			s.observeSheets(gctx, id, sum.Warnings, sum.Scoresheets, start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := report.NewDashboard(uuid.NewString(), s.now(), e.max)
	for _, sum := range summaries {
		d.Add(sum)
		metrics.RecordGrade(string(sum.Grade.Band))
		metrics.RecordTrend(string(sum.Trend.Direction))
	}
	d.Finish(s.movers)

	return d, nil
}

// Dashboard returns the last published dashboard, building one first when
// none exists yet.
func (s *Service) Dashboard(ctx context.Context) (*report.Dashboard, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if d := s.dashboard.Load(); d != nil {
		return d, nil
	}
	return s.RefreshDashboard(ctx)
}
