package matcher

import "github.com/okian/appraiser/pkg/logger"

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger for the resolver.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMemoSize caps the number of memoised resolutions. Zero disables the memo.
func WithMemoSize(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.memoSize = n
		}
	}
}
