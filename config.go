package cht

import (
	"flag"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/g-m-twostay/cht/rcu"
)

// Option configures a Table.
type Option func(*options)

type options struct {
	minSize uint64
	maxLoad uint64
	logger  log.Logger
	reg     prometheus.Registerer
	domain  *rcu.Domain

	phaseHook func(direction, phase string)
}

func defaultOptions() options {
	return options{
		minSize: DefaultMinSize,
		maxLoad: DefaultMaxLoad,
		logger:  log.NewNopLogger(),
	}
}

// WithMinSize sets the bucket count below which the table never shrinks. It is rounded up to a power of two.
func WithMinSize(n uint) Option {
	return func(o *options) {
		o.minSize = uint64(n)
	}
}

// WithMaxLoad sets the average number of items per bucket above which the table grows.
func WithMaxLoad(n uint) Option {
	return func(o *options) {
		o.maxLoad = uint64(n)
	}
}

// WithLogger sets the logger the resizer reports to.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegisterer registers the table's metrics with reg. Wrap reg with prometheus.WrapRegistererWith when several tables share it.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.reg = reg
	}
}

// WithRCU makes the table use d for its read-side sections and deferred callbacks instead of a private domain.
// The table does not close d on Destroy.
func WithRCU(d *rcu.Domain) Option {
	return func(o *options) {
		o.domain = d
	}
}

// Config is the file and flag friendly form of the table options.
type Config struct {
	InitialSize uint `yaml:"initial_size"`
	MinSize     uint `yaml:"min_size"`
	MaxLoad     uint `yaml:"max_load"`
}

// RegisterFlags registers the config flags under the "cht." prefix.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.RegisterFlagsWithPrefix("cht.", f)
}

// RegisterFlagsWithPrefix registers the config flags with every name prefixed by prefix.
func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.UintVar(&c.InitialSize, prefix+"initial-size", DefaultMinSize, "Number of buckets to start with, rounded up to a power of two.")
	f.UintVar(&c.MinSize, prefix+"min-size", DefaultMinSize, "Number of buckets the table never shrinks below.")
	f.UintVar(&c.MaxLoad, prefix+"max-load", DefaultMaxLoad, "Average chain length that makes the table grow.")
}

func (c *Config) Validate() error {
	if c.MinSize == 0 || uint64(c.MinSize) > 1<<MaxOrder {
		return errors.Wrapf(ErrInvalidConfig, "min size %d out of range [1, %d]", c.MinSize, uint64(1)<<MaxOrder)
	}
	if c.MaxLoad == 0 {
		return errors.Wrap(ErrInvalidConfig, "max load must be positive")
	}
	if uint64(c.InitialSize) > 1<<MaxOrder {
		return errors.Wrapf(ErrOutOfMemory, "initial size %d", c.InitialSize)
	}
	return nil
}

// Options converts the config to options for New.
func (c Config) Options() []Option {
	return []Option{WithMinSize(c.MinSize), WithMaxLoad(c.MaxLoad)}
}
