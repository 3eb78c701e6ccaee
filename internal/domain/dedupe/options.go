package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithSizeHint pre-sizes the fingerprint set for an expected row count.
func WithSizeHint(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.seen = make(map[string]struct{}, n)
		}
	}
}
