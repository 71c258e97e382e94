// Package scoresheet resolves append-only score records into scoresheets:
// one effective value per metric per client per reporting date, and the
// weighted total of those values.
//
// Every function here is a pure function of its input snapshot. The output
// does not depend on the order of the input records.
package scoresheet

import (
	"sort"
	"time"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/scoring"
)

const (
	dateKeyLayout = "2006-01-02"
	currentKey    = "current"
)

// Resolved is the effective value of one metric in a scoresheet.
type Resolved struct {
	RecordID int64     `json:"record_id"`
	RawValue float64   `json:"raw_value"`
	Value    float64   `json:"value"` // RawValue after bounding
	TakenAt  time.Time `json:"taken_at"`

	WeightedPoints float64 `json:"weighted_points"` // Value x weight x factor
	RawPoints      float64 `json:"raw_points"`      // Value x weight
	Factor         float64 `json:"factor"`
	Normalized     float64 `json:"normalized"`

	Clamped bool                 `json:"clamped"`
	Level   model.ThresholdLevel `json:"level"`
}

// Warnings counts data-quality events met while resolving a scoresheet.
type Warnings struct {
	UnknownMetric    int     `json:"unknown_metric"`
	UnknownMetricIDs []int64 `json:"unknown_metric_ids,omitempty"`
	Clamped          int     `json:"clamped"`
	Rejected         int     `json:"rejected"`
	Superseded       int     `json:"superseded"`
}

// Add accumulates o into w.
func (w *Warnings) Add(o Warnings) {
	w.UnknownMetric += o.UnknownMetric
	w.Clamped += o.Clamped
	w.Rejected += o.Rejected
	w.Superseded += o.Superseded
	w.UnknownMetricIDs = mergeIDs(w.UnknownMetricIDs, o.UnknownMetricIDs)
}

// Scoresheet is the derived set of effective records for one client on one
// reporting date.
type Scoresheet struct {
	ClientID int64     `json:"client_id"`
	Key      string    `json:"key"`
	Date     time.Time `json:"date"`

	Resolved          map[int64]Resolved `json:"resolved"`
	UnscoredMetricIDs []int64            `json:"unscored_metric_ids"`

	// Total is the absolute weighted total shown to end users.
	Total float64 `json:"total"`
	// Normalized is the weight-averaged normalized contribution of the
	// resolved metrics, in [0, 1]. Rankings and trends compare this value.
	Normalized float64 `json:"normalized"`

	Warnings Warnings `json:"warnings"`
}

// ResolvedCount returns how many metrics have an effective value.
func (s Scoresheet) ResolvedCount() int { return len(s.Resolved) }

// Scored reports whether metricID has an effective value. A metric scored
// zero is scored; a metric without a record is not.
func (s Scoresheet) Scored(metricID int64) bool {
	_, ok := s.Resolved[metricID]
	return ok
}

// Aggregator builds scoresheets from score records.
type Aggregator struct {
	normalizer *scoring.Normalizer
	loc        *time.Location
}

// NewAggregator creates an Aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		normalizer: scoring.NewNormalizer(),
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate resolves records into scoresheets and returns the most complete
// one. Records are expected to belong to one client and one reporting
// window; a single-date input yields that date's scoresheet. Without records
// it returns an empty scoresheet listing every catalog metric as unscored.
func (a *Aggregator) Aggregate(records []model.ScoreRecord, cat *catalog.Catalog) Scoresheet {
	if best, ok := MostComplete(a.Scoresheets(records, cat)); ok {
		return best
	}
	return a.resolve(group{}, cat)
}

// Scoresheets groups records by client and by explicit sheet id or calendar
// date, and resolves each group. The result is ordered by client, date and
// key.
func (a *Aggregator) Scoresheets(records []model.ScoreRecord, cat *catalog.Catalog) []Scoresheet {
	groups := make(map[groupKey]*group)
	for _, r := range records {
		k := groupKey{client: r.ClientID, key: r.SheetID}
		if k.key == "" {
			k.key = r.TakenAt.In(a.loc).Format(dateKeyLayout)
		}
		g, ok := groups[k]
		if !ok {
			g = &group{clientID: r.ClientID, key: k.key}
			groups[k] = g
		}
		g.records = append(g.records, r)
	}

	out := make([]Scoresheet, 0, len(groups))
	for _, g := range groups {
		out = append(out, a.resolve(*g, cat))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientID != out[j].ClientID {
			return out[i].ClientID < out[j].ClientID
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Current resolves the latest value per metric across all of a client's
// records, ignoring scoresheet boundaries. Its Total is the canonical
// "current score" of the client.
func (a *Aggregator) Current(records []model.ScoreRecord, cat *catalog.Catalog) Scoresheet {
	g := group{key: currentKey, records: records}
	for i, r := range records {
		if i == 0 || r.ClientID < g.clientID {
			g.clientID = r.ClientID
		}
	}
	return a.resolve(g, cat)
}

// MostComplete picks the scoresheet with the most resolved metrics, breaking
// ties by the most recent date. It reports false for an empty input.
func MostComplete(sheets []Scoresheet) (Scoresheet, bool) {
	if len(sheets) == 0 {
		return Scoresheet{}, false
	}
	best := sheets[0]
	for _, s := range sheets[1:] {
		if moreComplete(s, best) {
			best = s
		}
	}
	return best, true
}

func moreComplete(a, b Scoresheet) bool {
	if a.ResolvedCount() != b.ResolvedCount() {
		return a.ResolvedCount() > b.ResolvedCount()
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if a.Key != b.Key {
		return a.Key > b.Key
	}
	return a.ClientID < b.ClientID
}

// ByClient partitions records by client id.
func ByClient(records []model.ScoreRecord) map[int64][]model.ScoreRecord {
	out := make(map[int64][]model.ScoreRecord)
	for _, r := range records {
		out[r.ClientID] = append(out[r.ClientID], r)
	}
	return out
}

type groupKey struct {
	client int64
	key    string
}

type group struct {
	clientID int64
	key      string
	records  []model.ScoreRecord
}

type candidate struct {
	record  model.ScoreRecord
	value   float64
	clamped bool
}

// resolve applies latest-wins per metric and computes the totals.
func (a *Aggregator) resolve(g group, cat *catalog.Catalog) Scoresheet {
	sheet := Scoresheet{
		ClientID: g.clientID,
		Key:      g.key,
		Resolved: make(map[int64]Resolved),
	}

	winners := make(map[int64]candidate)
	unknown := make(map[int64]struct{})
	considered := 0
	for _, r := range g.records {
		m, ok := cat.Lookup(r.MetricID)
		if !ok {
			sheet.Warnings.UnknownMetric++
			unknown[r.MetricID] = struct{}{}
			continue
		}
		v, clamped, err := a.normalizer.Bound(m, r.Value)
		if err != nil {
			sheet.Warnings.Rejected++
			continue
		}
		if clamped {
			sheet.Warnings.Clamped++
		}
		considered++
		if cur, ok := winners[r.MetricID]; !ok || r.Newer(cur.record) {
			winners[r.MetricID] = candidate{record: r, value: v, clamped: clamped}
		}
	}
	sheet.Warnings.Superseded = considered - len(winners)
	for id := range unknown {
		sheet.Warnings.UnknownMetricIDs = append(sheet.Warnings.UnknownMetricIDs, id)
	}
	sort.Slice(sheet.Warnings.UnknownMetricIDs, func(i, j int) bool {
		return sheet.Warnings.UnknownMetricIDs[i] < sheet.Warnings.UnknownMetricIDs[j]
	})

	// Sum in catalog order so float totals do not depend on map iteration.
	var latest time.Time
	var weightSum, normalizedSum float64
	sheet.UnscoredMetricIDs = []int64{}
	for _, m := range cat.List() {
		w, ok := winners[m.ID]
		if !ok {
			sheet.UnscoredMetricIDs = append(sheet.UnscoredMetricIDs, m.ID)
			continue
		}
		res := Resolved{
			RecordID:       w.record.ID,
			RawValue:       w.record.Value,
			Value:          w.value,
			TakenAt:        w.record.TakenAt,
			WeightedPoints: a.normalizer.DisplayContribution(m, w.value),
			RawPoints:      w.value * float64(m.Weight),
			Factor:         a.normalizer.Factor(m),
			Normalized:     a.normalizer.NormalizedContribution(m, w.value),
			Clamped:        w.clamped,
			Level:          m.Level(w.value),
		}
		sheet.Resolved[m.ID] = res
		sheet.Total += res.WeightedPoints
		weightSum += float64(m.Weight)
		normalizedSum += float64(m.Weight) * res.Normalized
		if res.TakenAt.After(latest) {
			latest = res.TakenAt
		}
	}
	if weightSum > 0 {
		sheet.Normalized = normalizedSum / weightSum
	}
	if !latest.IsZero() {
		sheet.Date = a.day(latest)
	}
	if g.key != currentKey {
		if d, err := time.ParseInLocation(dateKeyLayout, g.key, a.loc); err == nil {
			sheet.Date = d
		}
	}
	return sheet
}

func (a *Aggregator) day(t time.Time) time.Time {
	t = t.In(a.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
}

func mergeIDs(a, b []int64) []int64 {
	if len(b) == 0 {
		return a
	}
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, id := range append(append([]int64(nil), a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
