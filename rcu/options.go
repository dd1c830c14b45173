package rcu

import (
	"time"

	"github.com/go-kit/log"
	"github.com/grafana/dskit/backoff"
	"github.com/prometheus/client_golang/prometheus"
)

type Option func(*options)

type options struct {
	wait   backoff.Config
	logger log.Logger
	reg    prometheus.Registerer
}

func defaultOptions() options {
	return options{
		wait: backoff.Config{
			MinBackoff: 20 * time.Microsecond,
			MaxBackoff: 10 * time.Millisecond,
		},
		logger: log.NewNopLogger(),
	}
}

// WithWaitBackoff sets how Synchronize polls for readers to leave. MaxRetries is ignored: a grace period always ends.
func WithWaitBackoff(cfg backoff.Config) Option {
	return func(o *options) {
		cfg.MaxRetries = 0
		o.wait = cfg
	}
}

func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegisterer registers the domain's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.reg = reg
	}
}
