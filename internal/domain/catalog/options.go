package catalog

// Option applies a configuration option to a Catalog under construction.
type Option func(*Catalog)

// WithVersion pins the catalog version instead of deriving it from content.
// Storage layers that keep their own revision counter use this.
func WithVersion(v uint64) Option {
	return func(c *Catalog) {
		if v != 0 {
			c.version = v
		}
	}
}
