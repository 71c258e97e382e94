// Package report holds the scored views handed to callers: a client's
// summary, the book-wide dashboard and the max-score diagnostics.
package report

import (
	"time"

	"github.com/okian/engage/internal/domain/grade"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/scoresheet"
	"github.com/okian/engage/internal/domain/scoring"
	"github.com/okian/engage/internal/domain/trend"
)

// ClientSummary is the scored view of one client.
type ClientSummary struct {
	ClientID int64 `json:"client_id"`

	// Current resolves the latest value of every metric across all dates.
	Current scoresheet.Scoresheet `json:"current"`
	// MostComplete is the dated scoresheet with the most scored metrics.
	MostComplete scoresheet.Scoresheet `json:"most_complete"`

	MaxScore   scoring.MaxScore `json:"max_score"`
	Percentage float64          `json:"percentage"`
	Grade      grade.Grade      `json:"grade"`
	Display    string           `json:"display"`

	Trend   trend.Result  `json:"trend"`
	Monthly []trend.Point `json:"monthly"`

	Scoresheets int                 `json:"scoresheets"`
	Warnings    scoresheet.Warnings `json:"warnings"`
}

// ClientScore is one client's line on the dashboard.
type ClientScore struct {
	ClientID   int64        `json:"client_id"`
	Total      float64      `json:"total"`
	Percentage float64      `json:"percentage"`
	Display    string       `json:"display"`
	Grade      grade.Grade  `json:"grade"`
	Trend      trend.Result `json:"trend"`
}

// Dashboard is a book-wide snapshot of client scores.
type Dashboard struct {
	ID          string           `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	MaxScore    scoring.MaxScore `json:"max_score"`
	Clients     []ClientScore    `json:"clients"`

	Improving []trend.Subject `json:"improving"`
	Declining []trend.Subject `json:"declining"`

	Grades       map[grade.Band]int  `json:"grades"`
	AverageTotal float64             `json:"average_total"`
	Warnings     scoresheet.Warnings `json:"warnings"`
}

// NewDashboard starts an empty dashboard with every grade band counted at
// zero.
func NewDashboard(id string, at time.Time, max scoring.MaxScore) *Dashboard {
	return &Dashboard{
		ID:          id,
		GeneratedAt: at,
		MaxScore:    max,
		Clients:     []ClientScore{},
		Improving:   []trend.Subject{},
		Declining:   []trend.Subject{},
		Grades: map[grade.Band]int{
			grade.Excellent:        0,
			grade.Good:             0,
			grade.NeedsImprovement: 0,
			grade.Critical:         0,
		},
	}
}

// Add appends a client's line and counts its grade and warnings.
func (d *Dashboard) Add(sum ClientSummary) {
	d.Clients = append(d.Clients, ClientScore{
		ClientID:   sum.ClientID,
		Total:      sum.Current.Total,
		Percentage: sum.Percentage,
		Display:    sum.Display,
		Grade:      sum.Grade,
		Trend:      sum.Trend,
	})
	d.Grades[sum.Grade.Band]++
	d.Warnings.Add(sum.Warnings)
}

// Finish computes the average total and picks the top movers in each
// direction.
func (d *Dashboard) Finish(movers int) {
	if len(d.Clients) == 0 {
		return
	}
	subjects := make([]trend.Subject, 0, len(d.Clients))
	var total float64
	for _, c := range d.Clients {
		total += c.Total
		subjects = append(subjects, trend.Subject{ID: c.ClientID, Result: c.Trend})
	}
	d.AverageTotal = total / float64(len(d.Clients))
	d.Improving, d.Declining = trend.Movers(subjects, movers)
}

// MetricMaximum compares a metric's declared maximum with the largest value
// recorded for it.
type MetricMaximum struct {
	MetricID int64   `json:"metric_id"`
	Name     string  `json:"name"`
	Declared float64 `json:"declared"`
	Observed float64 `json:"observed"`
	// Exceeded is true when recorded values went above the declared maximum.
	Exceeded bool `json:"exceeded"`
}

// NewMetricMaximum compares m's declared maximum with observed.
func NewMetricMaximum(m model.Metric, observed float64) MetricMaximum {
	declared := m.MaxRaw()
	return MetricMaximum{
		MetricID: m.ID,
		Name:     m.Name,
		Declared: declared,
		Observed: observed,
		Exceeded: declared > 0 && observed > declared,
	}
}

// Diagnostics explains the maximum possible score of the current catalog.
type Diagnostics struct {
	CatalogVersion string                 `json:"catalog_version"`
	MaxScore       scoring.MaxScore       `json:"max_score"`
	Breakdown      []scoring.Contribution `json:"breakdown"`
	Maxima         []MetricMaximum        `json:"maxima"`
	CacheHits      uint64                 `json:"cache_hits"`
	CacheMisses    uint64                 `json:"cache_misses"`
}
