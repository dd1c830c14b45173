package rcu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	gracePeriods        prometheus.Counter
	gracePeriodDuration prometheus.Histogram
	callbacks           prometheus.Counter
	batchSize           prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		gracePeriods: f.NewCounter(prometheus.CounterOpts{
			Namespace: "rcu",
			Name:      "grace_periods_total",
			Help:      "Total number of completed grace periods.",
		}),
		gracePeriodDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rcu",
			Name:      "grace_period_duration_seconds",
			Help:      "Time Synchronize spent waiting, including the wait for concurrent callers.",
			Buckets:   prometheus.ExponentialBuckets(.00001, 4, 8),
		}),
		callbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "rcu",
			Name:      "callbacks_total",
			Help:      "Total number of deferred functions run.",
		}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rcu",
			Name:      "callback_batch_size",
			Help:      "Number of deferred functions sharing one grace period.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}
