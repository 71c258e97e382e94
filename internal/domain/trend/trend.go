// Package trend classifies score histories as improving, declining or
// stable, ranks subjects relative to each other, and buckets scoresheets by
// calendar month for charting.
package trend

import (
	"math"
	"sort"

	"github.com/okian/engage/internal/domain/scoresheet"
)

// DefaultThreshold is the relative change, as a fraction of the older mean,
// above which a sequence is trending.
const DefaultThreshold = 0.05

// Direction of a score history.
type Direction string

const (
	Up     Direction = "trending_up"
	Down   Direction = "trending_down"
	Stable Direction = "stable"
)

// Result describes one direction classification.
type Result struct {
	Direction  Direction `json:"direction"`
	OlderMean  float64   `json:"older_mean"`
	RecentMean float64   `json:"recent_mean"`
	// Change is (recent - older) / older, or 0 when it is undefined.
	Change float64 `json:"change"`
	Points int     `json:"points"`
}

// Analyzer classifies sequences of scores.
type Analyzer struct {
	threshold float64
}

// NewAnalyzer creates an Analyzer with configuration options.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the configured threshold.
func (a *Analyzer) Threshold() float64 { return a.threshold }

// Direction splits values, ordered oldest first, at the midpoint and compares
// the mean of the recent half with the mean of the older half. With an odd
// count the middle value belongs to the recent half.
//
// Fewer than two points, or an older mean of zero, is stable.
func (a *Analyzer) Direction(values []float64) Result {
	res := Result{Direction: Stable, Points: len(values)}
	if len(values) < 2 {
		return res
	}
	mid := len(values) / 2
	res.OlderMean = mean(values[:mid])
	res.RecentMean = mean(values[mid:])
	if res.OlderMean == 0 || math.IsNaN(res.OlderMean) || math.IsNaN(res.RecentMean) {
		return res
	}
	res.Change = (res.RecentMean - res.OlderMean) / math.Abs(res.OlderMean)
	switch {
	case res.Change > a.threshold:
		res.Direction = Up
	case res.Change < -a.threshold:
		res.Direction = Down
	}
	return res
}

// Sheets classifies a series of scoresheets by the chosen variant.
func (a *Analyzer) Sheets(sheets []scoresheet.Scoresheet, v Variant) Result {
	return a.Direction(Values(sheets, v))
}

// Variant selects which scoresheet total a series is built from.
type Variant int

const (
	// Display uses the absolute weighted total.
	Display Variant = iota
	// Normalized uses the weight-averaged normalized score.
	Normalized
)

func (v Variant) of(s scoresheet.Scoresheet) float64 {
	if v == Normalized {
		return s.Normalized
	}
	return s.Total
}

// Values returns the chosen total of each scoresheet ordered by date.
// The input slice is not modified.
func Values(sheets []scoresheet.Scoresheet, v Variant) []float64 {
	sorted := byDate(sheets)
	out := make([]float64, len(sorted))
	for i, s := range sorted {
		out[i] = v.of(s)
	}
	return out
}

func byDate(sheets []scoresheet.Scoresheet) []scoresheet.Scoresheet {
	sorted := append([]scoresheet.Scoresheet(nil), sheets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Subject is a classified history of a client or metric.
type Subject struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Result Result `json:"result"`
}

// Movers returns up to n subjects trending up, strongest first, and up to n
// trending down, steepest first. Ties are broken by id.
func Movers(subjects []Subject, n int) (up, down []Subject) {
	up, down = []Subject{}, []Subject{}
	for _, s := range subjects {
		switch s.Result.Direction {
		case Up:
			up = append(up, s)
		case Down:
			down = append(down, s)
		}
	}
	sort.Slice(up, func(i, j int) bool {
		if up[i].Result.Change != up[j].Result.Change {
			return up[i].Result.Change > up[j].Result.Change
		}
		return up[i].ID < up[j].ID
	})
	sort.Slice(down, func(i, j int) bool {
		if down[i].Result.Change != down[j].Result.Change {
			return down[i].Result.Change < down[j].Result.Change
		}
		return down[i].ID < down[j].ID
	})
	if n < 0 {
		n = 0
	}
	if len(up) > n {
		up = up[:n]
	}
	if len(down) > n {
		down = down[:n]
	}
	return up, down
}
