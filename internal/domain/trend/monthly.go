package trend

import (
	"time"

	"github.com/okian/engage/internal/domain/scoresheet"
)

// Reduce combines the scoresheets of one month into a single value.
type Reduce int

const (
	// Sum adds the totals; used for display charts.
	Sum Reduce = iota
	// Average takes the mean; used for ranking comparisons.
	Average
)

// Point is one calendar month of a series.
type Point struct {
	Month time.Time `json:"month"` // first day of the month
	Value float64   `json:"value"`
	Count int       `json:"count"`
}

// Monthly buckets scoresheets by the calendar month of their date and
// reduces each bucket. Months without scoresheets are omitted, not zero
// filled. Points are ordered by month.
func Monthly(sheets []scoresheet.Scoresheet, v Variant, r Reduce) []Point {
	out := []Point{}
	for _, s := range byDate(sheets) {
		if s.Date.IsZero() {
			continue
		}
		month := time.Date(s.Date.Year(), s.Date.Month(), 1, 0, 0, 0, 0, s.Date.Location())
		if n := len(out); n == 0 || !out[n-1].Month.Equal(month) {
			out = append(out, Point{Month: month})
		}
		p := &out[len(out)-1]
		p.Value += v.of(s)
		p.Count++
	}
	if r == Average {
		for i := range out {
			out[i].Value /= float64(out[i].Count)
		}
	}
	return out
}
