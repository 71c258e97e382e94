package repository

import "time"

type options struct {
	now     func() time.Time
	cascade bool
}

func defaultOptions() options {
	return options{now: time.Now, cascade: true}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithClock sets the time source used for records without TakenAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCascadeDelete controls whether deleting a metric removes its score
// records. Enabled by default. When disabled, orphaned records stay and the
// engine reports them as unknown metric references.
func WithCascadeDelete(enabled bool) Option {
	return func(o *options) {
		o.cascade = enabled
	}
}
