package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/grade"
	"github.com/okian/engage/internal/domain/report"
	"github.com/okian/engage/internal/domain/scoresheet"
	"github.com/okian/engage/internal/domain/scoring"
	"github.com/okian/engage/internal/domain/trend"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

// ClientSummary scores one client from a fresh snapshot of its records.
func (s *Service) ClientSummary(ctx context.Context, clientID int64) (report.ClientSummary, error) {
	if err := s.ready(); err != nil {
		return report.ClientSummary{}, err
	}

	start := time.Now()
	e, err := s.engine(ctx, repository.Filter{ClientID: clientID})
	if err != nil {
		return report.ClientSummary{}, err
	}
	if len(e.records) == 0 {
		return report.ClientSummary{}, fmt.Errorf("%w: %d", ErrClientNotFound, clientID)
	}

	sum := s.summarize(clientID, e)
	s.observeSheets(ctx, clientID, sum.Warnings, sum.Scoresheets, start)
	metrics.RecordGrade(string(sum.Grade.Band))
	metrics.RecordTrend(string(sum.Trend.Direction))

	s.logger.Debug(ctx, "client summary",
		logger.Int64("client_id", clientID),
		logger.Float64("total", sum.Current.Total),
		logger.Float64("percentage", sum.Percentage),
		logger.String("grade", string(sum.Grade.Band)),
		logger.String("trend", string(sum.Trend.Direction)),
	)
	return sum, nil
}

// summarize is the pure part of ClientSummary. records of e must all belong
// to clientID.
func (s *Service) summarize(clientID int64, e *engine) report.ClientSummary {
	sheets := e.agg.Scoresheets(e.records, e.cat)
	current := e.agg.Current(e.records, e.cat)
	current.ClientID = clientID

	latest, _ := scoresheet.MostComplete(sheets)

	var warnings scoresheet.Warnings
	for _, sh := range sheets {
		warnings.Add(sh.Warnings)
	}

	pct := grade.Percentage(current.Total, e.max.Corrected)
	return report.ClientSummary{
		ClientID:     clientID,
		Current:      current,
		MostComplete: latest,
		MaxScore:     e.max,
		Percentage:   pct,
		Grade:        s.classifier.Classify(pct),
		Display:      grade.Display(current.Total, e.max.Corrected),
		Trend:        s.analyzer.Sheets(sheets, trend.Normalized),
		Monthly:      trend.Monthly(sheets, trend.Display, trend.Sum),
		Scoresheets:  len(sheets),
		Warnings:     warnings,
	}
}

// Scoresheets returns one client's dated scoresheets with taken_at in
// [from, to). Zero bounds are open.
func (s *Service) Scoresheets(ctx context.Context, clientID int64, from, to time.Time) ([]scoresheet.Scoresheet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	e, err := s.engine(ctx, repository.Filter{ClientID: clientID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	sheets := e.agg.Scoresheets(e.records, e.cat)

	var warnings scoresheet.Warnings
	for _, sh := range sheets {
		warnings.Add(sh.Warnings)
	}
	s.observeSheets(ctx, clientID, warnings, len(sheets), start)
	return sheets, nil
}

// Diagnostics reports the maximum score, its per-metric breakdown and how
// recorded data compares with declared maxima.
func (s *Service) Diagnostics(ctx context.Context) (report.Diagnostics, error) {
	if err := s.ready(); err != nil {
		return report.Diagnostics{}, err
	}

	e, err := s.engine(ctx, repository.Filter{})
	if err != nil {
		return report.Diagnostics{}, err
	}

	d := report.Diagnostics{
		CatalogVersion: fmt.Sprintf("%016x", e.cat.Version()),
		MaxScore:       e.max,
		Breakdown:      scoring.ContributionBreakdown(e.cat),
		Maxima:         make([]report.MetricMaximum, 0, e.cat.Len()),
	}
	for _, m := range e.cat.List() {
		d.Maxima = append(d.Maxima, report.NewMetricMaximum(m, e.observed[m.ID]))
	}
	d.CacheHits, d.CacheMisses = s.cache.Stats()
	return d, nil
}

// MetricRankings ranks metrics by their average normalized value across the
// current scoresheets of all clients. Metrics no client has scored are left
// out.
func (s *Service) MetricRankings(ctx context.Context) ([]trend.Ranked, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	e, err := s.engine(ctx, repository.Filter{})
	if err != nil {
		return nil, err
	}

	sums := make(map[int64]float64, e.cat.Len())
	counts := make(map[int64]int, e.cat.Len())
	for _, records := range scoresheet.ByClient(e.records) {
		current := e.agg.Current(records, e.cat)
		for id, r := range current.Resolved {
			sums[id] += r.Normalized
			counts[id]++
		}
	}

	items := make([]trend.Item, 0, len(counts))
	for _, m := range e.cat.List() {
		n := counts[m.ID]
		if n == 0 {
			continue
		}
		items = append(items, trend.Item{ID: m.ID, Name: m.Name, Score: sums[m.ID] / float64(n)})
	}
	return trend.Rank(items), nil
}
