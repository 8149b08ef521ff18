package anndata

import (
	"log/slog"
)

// Option configures Read.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	consolidated bool
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.DiscardHandler),
	}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for debug events. Nothing is logged by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConsolidated reads metadata from the store's .zmetadata document when
// it has one.
func WithConsolidated() Option {
	return func(o *options) {
		o.consolidated = true
	}
}
