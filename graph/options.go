package graph

import (
	"github.com/rlch/lineage"
	"go.uber.org/zap"
)

type options struct {
	logger         *zap.Logger
	maxParents     int
	maxGenerations int
	concurrency    int
}

func defaultOptions() options {
	return options{
		logger:         zap.NewNop(),
		maxParents:     lineage.DefaultMaxBiologicalParents,
		maxGenerations: lineage.DefaultMaxGenerations,
		concurrency:    lineage.DefaultConcurrency,
	}
}

// Option configures an Engine or a Traverser.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxBiologicalParents caps the biological parents a child may have.
// Zero disables the cap.
func WithMaxBiologicalParents(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxParents = n
		}
	}
}

// WithMaxGenerations clamps the depth any traversal may request.
func WithMaxGenerations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxGenerations = n
		}
	}
}

// WithConcurrency bounds how many branches a traversal expands at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithConfig applies the graph section of a config.
func WithConfig(cfg lineage.GraphConfig) Option {
	return func(o *options) {
		WithMaxGenerations(cfg.MaxGenerations)(o)
		WithConcurrency(cfg.Concurrency)(o)

		if cfg.MaxBiologicalParents != nil {
			WithMaxBiologicalParents(*cfg.MaxBiologicalParents)(o)
		}
	}
}
