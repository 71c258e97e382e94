package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/pkg/metrics"

	_ "modernc.org/sqlite" // SQLite driver
)

// Table names.
const (
	metricsTable = "metrics"
	optionsTable = "metric_options"
	scoresTable  = "scores"
)

var schemaQueries = []struct {
	name  string
	query string
}{
	{metricsTable, `
		CREATE TABLE IF NOT EXISTS metrics (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			weight INTEGER NOT NULL,
			kind TEXT NOT NULL,
			min_value REAL NOT NULL,
			max_value REAL NOT NULL,
			high_threshold REAL NOT NULL,
			low_threshold REAL NOT NULL
		);`},
	{optionsTable, `
		CREATE TABLE IF NOT EXISTS metric_options (
			metric_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (metric_id, position)
		);`},
	{scoresTable, `
		CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id INTEGER NOT NULL,
			metric_id INTEGER NOT NULL,
			value REAL NOT NULL,
			taken_at INTEGER NOT NULL,
			taken_at_nanos INTEGER NOT NULL DEFAULT 0,
			note TEXT NOT NULL DEFAULT '',
			locked INTEGER NOT NULL DEFAULT 0,
			sheet_id TEXT NOT NULL DEFAULT ''
		);`},
	{"scores_client_idx", `CREATE INDEX IF NOT EXISTS scores_client_taken ON scores (client_id, taken_at);`},
}

// SQLStore is a Store backed by SQLite.
type SQLStore struct {
	db   *sql.DB
	opts options
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens the SQLite database at dsn and creates the schema.
func NewSQLStore(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database at %q: %w", dsn, err)
	}
	// A single connection avoids "database is locked" errors and keeps an
	// in-memory database alive for the store's lifetime.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	for _, q := range schemaQueries {
		if _, err := db.ExecContext(ctx, q.query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create table %s: %w", q.name, err)
		}
	}

	s := &SQLStore{db: db, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s, nil
}

// Append implements Store. The batch is written in one transaction.
func (s *SQLStore) Append(ctx context.Context, records ...model.ScoreRecord) ([]model.ScoreRecord, error) {
	defer observe("append", time.Now())

	for i, r := range records {
		if !validRecord(r) {
			return nil, fmt.Errorf("%w: records[%d]", ErrInvalidRecord, i)
		}
	}

	out := make([]model.ScoreRecord, len(records))
	err := s.tx(ctx, func(tx *sql.Tx) error {
		for i, r := range records {
			if r.TakenAt.IsZero() {
				r.TakenAt = s.opts.now()
			}
			r.TakenAt = r.TakenAt.UTC()

			cols := "client_id, metric_id, value, taken_at, taken_at_nanos, note, locked, sheet_id"
			args := []any{r.ClientID, r.MetricID, r.Value, r.TakenAt.Unix(), r.TakenAt.Nanosecond(), r.Note, r.Locked, r.SheetID}
			if r.ID != 0 {
				var exists int
				err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM scores WHERE id = ?`, r.ID).Scan(&exists)
				if err != nil {
					return fmt.Errorf("failed to check record id %d: %w", r.ID, err)
				}
				if exists > 0 {
					return fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
				}
				cols = "id, " + cols
				args = append([]any{r.ID}, args...)
			}
			query := fmt.Sprintf(`INSERT INTO scores (%s) VALUES (%s)`, cols, placeholders(len(args)))
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to insert score record: %w", err)
			}
			if r.ID == 0 {
				if r.ID, err = res.LastInsertId(); err != nil {
					return fmt.Errorf("failed to read record id: %w", err)
				}
			}
			out[i] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordStoreAppend(len(out))
	return out, nil
}

// FetchScoreRecords implements Store.
func (s *SQLStore) FetchScoreRecords(ctx context.Context, f Filter) ([]model.ScoreRecord, error) {
	defer observe("fetch_records", time.Now())

	var where []string
	var args []any
	if f.ClientID != 0 {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.MetricID != 0 {
		where = append(where, "metric_id = ?")
		args = append(args, f.MetricID)
	}
	if !f.From.IsZero() {
		where = append(where, "(taken_at > ? OR (taken_at = ? AND taken_at_nanos >= ?))")
		args = append(args, f.From.Unix(), f.From.Unix(), f.From.Nanosecond())
	}
	if !f.To.IsZero() {
		where = append(where, "(taken_at < ? OR (taken_at = ? AND taken_at_nanos < ?))")
		args = append(args, f.To.Unix(), f.To.Unix(), f.To.Nanosecond())
	}
	query := `SELECT id, client_id, metric_id, value, taken_at, taken_at_nanos, note, locked, sheet_id FROM scores`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query score records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.ScoreRecord{}
	for rows.Next() {
		var r model.ScoreRecord
		var sec, nsec int64
		if err := rows.Scan(&r.ID, &r.ClientID, &r.MetricID, &r.Value, &sec, &nsec, &r.Note, &r.Locked, &r.SheetID); err != nil {
			return nil, fmt.Errorf("failed to scan score record: %w", err)
		}
		// Seconds and nanoseconds are kept apart since UnixNano only covers
		// the years 1678 to 2262.
		r.TakenAt = time.Unix(sec, nsec).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read score records: %w", err)
	}
	return out, nil
}

// FetchMetrics implements Store.
func (s *SQLStore) FetchMetrics(ctx context.Context) ([]model.Metric, error) {
	defer observe("fetch_metrics", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, weight, kind, min_value, max_value, high_threshold, low_threshold
		FROM metrics ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	out := []model.Metric{}
	index := make(map[int64]int)
	for rows.Next() {
		var m model.Metric
		var kind string
		if err := rows.Scan(&m.ID, &m.Name, &m.Weight, &kind, &m.Min, &m.Max, &m.HighThreshold, &m.LowThreshold); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if m.Kind, err = model.ParseMetricKind(kind); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("metric %d: %w", m.ID, err)
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	_ = rows.Close()

	opts, err := s.db.QueryContext(ctx, `SELECT metric_id, label, value FROM metric_options ORDER BY metric_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric options: %w", err)
	}
	defer func() { _ = opts.Close() }()
	for opts.Next() {
		var id int64
		var o model.MetricOption
		if err := opts.Scan(&id, &o.Label, &o.Value); err != nil {
			return nil, fmt.Errorf("failed to scan metric option: %w", err)
		}
		if i, ok := index[id]; ok {
			out[i].Options = append(out[i].Options, o)
		}
	}
	if err := opts.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metric options: %w", err)
	}
	return out, nil
}

// PutMetric implements Store.
func (s *SQLStore) PutMetric(ctx context.Context, m model.Metric) error {
	defer observe("put_metric", time.Now())

	if err := catalog.Validate(m); err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metrics (id, position, name, weight, kind, min_value, max_value, high_threshold, low_threshold)
			VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM metrics), ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				weight = excluded.weight,
				kind = excluded.kind,
				min_value = excluded.min_value,
				max_value = excluded.max_value,
				high_threshold = excluded.high_threshold,
				low_threshold = excluded.low_threshold`,
			m.ID, m.Name, m.Weight, m.Kind.String(), m.Min, m.Max, m.HighThreshold, m.LowThreshold)
		if err != nil {
			return fmt.Errorf("failed to upsert metric %d: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM metric_options WHERE metric_id = ?`, m.ID); err != nil {
			return fmt.Errorf("failed to clear options of metric %d: %w", m.ID, err)
		}
		for i, o := range m.Options {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO metric_options (metric_id, position, label, value) VALUES (?, ?, ?, ?)`,
				m.ID, i, o.Label, o.Value)
			if err != nil {
				return fmt.Errorf("failed to insert option of metric %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

// DeleteMetric implements Store.
func (s *SQLStore) DeleteMetric(ctx context.Context, id int64) (int, error) {
	defer observe("delete_metric", time.Now())

	var removed int64
	err := s.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM metrics WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete metric %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to delete metric %d: %w", id, err)
		} else if n == 0 {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM metric_options WHERE metric_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete options of metric %d: %w", id, err)
		}
		if !s.opts.cascade {
			return nil
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM scores WHERE metric_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete records of metric %d: %w", id, err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// Clients implements Store.
func (s *SQLStore) Clients(ctx context.Context) ([]int64, error) {
	defer observe("clients", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT client_id FROM scores ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan client id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM scores),
			(SELECT COUNT(*) FROM metrics),
			(SELECT COUNT(DISTINCT client_id) FROM scores)`).Scan(&c.Records, &c.Metrics, &c.Clients)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count store contents: %w", err)
	}
	return c, nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
