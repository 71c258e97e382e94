// Package repository stores metric definitions and append-only score records
// and hands consistent snapshots of them to the scoring engine.
package repository

import (
	"context"
	"time"

	"github.com/okian/engage/internal/domain/model"
)

// Filter narrows a score record fetch. Zero values match everything.
type Filter struct {
	ClientID int64
	MetricID int64
	// From is inclusive, To is exclusive.
	From time.Time
	To   time.Time
}

// Match reports whether r passes the filter.
func (f Filter) Match(r model.ScoreRecord) bool {
	switch {
	case f.ClientID != 0 && r.ClientID != f.ClientID:
		return false
	case f.MetricID != 0 && r.MetricID != f.MetricID:
		return false
	case !f.From.IsZero() && r.TakenAt.Before(f.From):
		return false
	case !f.To.IsZero() && !r.TakenAt.Before(f.To):
		return false
	}
	return true
}

// Counts summarizes store contents.
type Counts struct {
	Records int `json:"records"`
	Metrics int `json:"metrics"`
	Clients int `json:"clients"`
}

// Store provides access to metric definitions and score records.
//
// Records are never updated or deduplicated; every Append adds rows. Each
// fetch returns an independent snapshot that later writes do not affect.
type Store interface {
	// Append stores records and returns them with ids assigned. A zero id is
	// assigned from the store's sequence; a zero TakenAt becomes now.
	Append(ctx context.Context, records ...model.ScoreRecord) ([]model.ScoreRecord, error)

	// FetchScoreRecords returns matching records ordered by id.
	FetchScoreRecords(ctx context.Context, f Filter) ([]model.ScoreRecord, error)

	// FetchMetrics returns metric definitions in insertion order.
	FetchMetrics(ctx context.Context) ([]model.Metric, error)

	// PutMetric adds a metric or replaces the definition with the same id,
	// keeping its position.
	PutMetric(ctx context.Context, m model.Metric) error

	// DeleteMetric removes a metric and reports how many score records were
	// removed with it. Returns ErrNotFound if the metric is unknown.
	DeleteMetric(ctx context.Context, id int64) (int, error)

	// Clients returns the distinct client ids that have records, ascending.
	Clients(ctx context.Context) ([]int64, error)

	// Count summarizes the store.
	Count(ctx context.Context) (Counts, error)

	Close() error
}

func validRecord(r model.ScoreRecord) bool {
	return r.ClientID > 0 && r.MetricID > 0 && r.ID >= 0
}
