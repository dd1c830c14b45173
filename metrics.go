package cht

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	resizes        *prometheus.CounterVec
	resizeDuration *prometheus.HistogramVec
}

// newMetrics registers the table's metrics with reg. A nil reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer, items, buckets func() float64) *metrics {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cht",
		Name:      "items",
		Help:      "Number of items linked into the table.",
	}, items)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cht",
		Name:      "buckets",
		Help:      "Number of buckets of the current bucket array.",
	}, buckets)
	return &metrics{
		resizes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cht",
			Name:      "resizes_total",
			Help:      "Total number of completed resizes.",
		}, []string{"direction"}),
		resizeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cht",
			Name:      "resize_duration_seconds",
			Help:      "Time taken by a resize, including its grace periods.",
			Buckets:   prometheus.ExponentialBuckets(.0005, 4, 8),
		}, []string{"direction"}),
	}
}
