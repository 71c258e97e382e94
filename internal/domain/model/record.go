package model

import "time"

// ScoreRecord is one observation of a metric for a client.
// Records are append-only; several may exist for the same client and metric
// on the same day.
type ScoreRecord struct {
	ID       int64     `json:"id"` // insertion order, used as a tie-breaker
	ClientID int64     `json:"client_id"`
	MetricID int64     `json:"metric_id"`
	Value    float64   `json:"value"`
	TakenAt  time.Time `json:"taken_at"`
	Note     string    `json:"note,omitempty"`
	Locked   bool      `json:"locked"`

	// SheetID groups records into a scoresheet explicitly. When empty the
	// calendar date of TakenAt is used.
	SheetID string `json:"sheet_id,omitempty"`
}

// Newer reports whether r supersedes o when both describe the same metric in
// the same scoresheet: later TakenAt wins, then higher ID, then higher value.
func (r ScoreRecord) Newer(o ScoreRecord) bool {
	if !r.TakenAt.Equal(o.TakenAt) {
		return r.TakenAt.After(o.TakenAt)
	}
	if r.ID != o.ID {
		return r.ID > o.ID
	}
	return r.Value > o.Value
}
