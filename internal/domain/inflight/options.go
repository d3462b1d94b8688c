// Package inflight tracks player evaluations that are currently running.
package inflight

// Option applies a configuration option to the registry.
type Option func(*registry)

// WithKeyFunc replaces the key canonicalisation. The default lower-cases and
// trims the identifier.
func WithKeyFunc(fn func(string) string) Option {
	return func(r *registry) {
		if fn != nil {
			r.key = fn
		}
	}
}

// WithOnChange registers a callback invoked with the new size after every
// acquire or release. It runs under the registry lock, so fn must not call
// back into the set.
func WithOnChange(fn func(size int)) Option {
	return func(r *registry) {
		r.onChange = fn
	}
}
