package trend

import "sort"

// Standing is the third a ranked item falls into.
type Standing string

const (
	Strength  Standing = "strength"
	Moderate  Standing = "moderate"
	FocusArea Standing = "focus_area"
)

// Item is one subject to rank, usually a metric's company-wide normalized
// score.
type Item struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Ranked is an Item with its relative position.
type Ranked struct {
	Item
	Position   int      `json:"position"` // 1-based
	Standing   Standing `json:"standing"`
	Percentile float64  `json:"percentile"`
}

// Rank orders items by score, highest first, and partitions them into
// thirds. Equal scores keep their input order. Percentile is 100 for the
// first item and 0 for the last.
func Rank(items []Item) []Ranked {
	sorted := append([]Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	n := len(sorted)
	out := make([]Ranked, n)
	for i, it := range sorted {
		r := Ranked{Item: it, Position: i + 1, Percentile: 100}
		switch i * 3 / n {
		case 0:
			r.Standing = Strength
		case 1:
			r.Standing = Moderate
		default:
			r.Standing = FocusArea
		}
		if n > 1 {
			r.Percentile = float64(n-1-i) / float64(n-1) * 100
		}
		out[i] = r
	}
	return out
}
