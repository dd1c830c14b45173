package cht

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTable_Metrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	tb := newTestTable(t, 0, entryOps(), WithRegisterer(reg))
	insertRange(tb, 0, 300)
	tb.Barrier()

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP cht_buckets Number of buckets of the current bucket array.
# TYPE cht_buckets gauge
cht_buckets 256
# HELP cht_items Number of items linked into the table.
# TYPE cht_items gauge
cht_items 300
`), "cht_items", "cht_buckets"))
	require.Equal(t, 1.0, testutil.ToFloat64(tb.metrics.resizes.WithLabelValues("grow")))
	require.Zero(t, testutil.ToFloat64(tb.metrics.resizes.WithLabelValues("shrink")))

	for k := 0; k < 300; k++ {
		tb.RemoveKey(k)
	}
	tb.Barrier()
	require.Equal(t, 1.0, testutil.ToFloat64(tb.metrics.resizes.WithLabelValues("shrink")))

	// the private rcu domain registers its metrics too.
	n, err := testutil.GatherAndCount(reg, "rcu_grace_periods_total", "rcu_callbacks_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestTable_MetricsWrapped(t *testing.T) {
	reg := prometheus.NewRegistry()
	for _, name := range []string{"a", "b"} {
		r := prometheus.WrapRegistererWith(prometheus.Labels{"table": name}, reg)
		newTestTable(t, 0, entryOps(), WithRegisterer(r))
	}
	n, err := testutil.GatherAndCount(reg, "cht_buckets")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
