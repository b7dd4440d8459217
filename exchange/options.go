package exchange

import (
	"fmt"
	"slices"

	"github.com/rlch/lineage"
	"go.uber.org/zap"
)

// Default header values.
const (
	ProductName      = "Lineage"
	ProductVersion   = "1.0"
	DefaultSubmitter = "Lineage user"
)

type options struct {
	logger      *zap.Logger
	metrics     *Metrics
	policy      string
	concurrency int
	source      string
	submitter   string
	exclude     string
}

func defaultOptions() options {
	return options{
		logger:      zap.NewNop(),
		policy:      lineage.PolicyFamilyFirst,
		concurrency: 1,
		source:      lineage.DefaultSource,
		submitter:   DefaultSubmitter,
	}
}

func newOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if !slices.Contains(lineage.KnownPolicies, o.policy) {
		return o, fmt.Errorf("%w: %q", ErrUnknownPolicy, o.policy)
	}

	return o, nil
}

// Option configures an Importer or an Exporter. Options that do not apply
// to one are ignored by it.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records import and export activity on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRolePolicy selects how the importer decides a child link's parental
// role. See lineage.KnownPolicies.
func WithRolePolicy(policy string) Option {
	return func(o *options) {
		if policy != "" {
			o.policy = policy
		}
	}
}

// WithConcurrency bounds how many FAM records the importer links at once.
// One keeps relationship creation in file order.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithSource sets the system identifier written to HEAD SOUR.
func WithSource(source string) Option {
	return func(o *options) {
		if source != "" {
			o.source = source
		}
	}
}

// WithSubmitter sets the submitter name written to the SUBM record.
func WithSubmitter(name string) Option {
	return func(o *options) {
		if name != "" {
			o.submitter = name
		}
	}
}

// WithExclude sets a privacy filter. People matching the boolean expression
// are left out of the export along with every relationship touching them.
// The expression sees the fields of PersonEnv.
func WithExclude(expression string) Option {
	return func(o *options) {
		o.exclude = expression
	}
}

// WithConfig applies the import and export sections of a config file.
func WithConfig(cfg *lineage.Config) Option {
	return func(o *options) {
		for _, opt := range []Option{
			WithRolePolicy(cfg.Import.RolePolicy),
			WithConcurrency(cfg.Import.Concurrency),
			WithSource(cfg.Export.Source),
			WithSubmitter(cfg.Export.Submitter),
		} {
			opt(o)
		}

		if cfg.Export.Exclude != "" {
			o.exclude = cfg.Export.Exclude
		}
	}
}
