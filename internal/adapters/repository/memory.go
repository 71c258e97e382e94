package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/pkg/metrics"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	opts options

	mu      sync.RWMutex
	records []model.ScoreRecord
	ids     map[int64]struct{}
	nextID  int64
	metrics []model.Metric
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		opts:   defaultOptions(),
		ids:    make(map[int64]struct{}),
		nextID: 1,
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, records ...model.ScoreRecord) ([]model.ScoreRecord, error) {
	defer observe("append", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the batch before touching state so a failed append adds nothing.
	seen := make(map[int64]struct{}, len(records))
	for i, r := range records {
		if !validRecord(r) {
			return nil, fmt.Errorf("%w: records[%d]", ErrInvalidRecord, i)
		}
		if r.ID == 0 {
			continue
		}
		_, stored := s.ids[r.ID]
		_, batched := seen[r.ID]
		if stored || batched {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	out := make([]model.ScoreRecord, len(records))
	for i, r := range records {
		if r.ID == 0 {
			for {
				if _, taken := s.ids[s.nextID]; !taken {
					if _, batched := seen[s.nextID]; !batched {
						break
					}
				}
				s.nextID++
			}
			r.ID = s.nextID
		}
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
		if r.TakenAt.IsZero() {
			r.TakenAt = s.opts.now()
		}
		r.TakenAt = r.TakenAt.UTC()
		s.ids[r.ID] = struct{}{}
		s.records = append(s.records, r)
		out[i] = r
	}
	sort.Slice(s.records, func(i, j int) bool { return s.records[i].ID < s.records[j].ID })
	metrics.RecordStoreAppend(len(out))
	return out, nil
}

// FetchScoreRecords implements Store.
func (s *MemoryStore) FetchScoreRecords(_ context.Context, f Filter) ([]model.ScoreRecord, error) {
	defer observe("fetch_records", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ScoreRecord, 0, len(s.records))
	for _, r := range s.records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FetchMetrics implements Store.
func (s *MemoryStore) FetchMetrics(_ context.Context) ([]model.Metric, error) {
	defer observe("fetch_metrics", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Metric, len(s.metrics))
	for i, m := range s.metrics {
		m.Options = append([]model.MetricOption(nil), m.Options...)
		out[i] = m
	}
	return out, nil
}

// PutMetric implements Store.
func (s *MemoryStore) PutMetric(_ context.Context, m model.Metric) error {
	defer observe("put_metric", time.Now())

	if err := catalog.Validate(m); err != nil {
		return err
	}
	m.Options = append([]model.MetricOption(nil), m.Options...)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.metrics {
		if s.metrics[i].ID == m.ID {
			s.metrics[i] = m
			return nil
		}
	}
	s.metrics = append(s.metrics, m)
	return nil
}

// DeleteMetric implements Store.
func (s *MemoryStore) DeleteMetric(_ context.Context, id int64) (int, error) {
	defer observe("delete_metric", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.metrics {
		if s.metrics[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.metrics = append(s.metrics[:idx], s.metrics[idx+1:]...)

	if !s.opts.cascade {
		return 0, nil
	}
	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if r.MetricID == id {
			delete(s.ids, r.ID)
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// Fetches copy out of s.records, so truncating in place is safe.
	s.records = kept
	return removed, nil
}

// Clients implements Store.
func (s *MemoryStore) Clients(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients(), nil
}

func (s *MemoryStore) clients() []int64 {
	seen := make(map[int64]struct{})
	out := []int64{}
	for _, r := range s.records {
		if _, ok := seen[r.ClientID]; ok {
			continue
		}
		seen[r.ClientID] = struct{}{}
		out = append(out, r.ClientID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Records: len(s.records), Metrics: len(s.metrics), Clients: len(s.clients())}, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
