package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/g-m-twostay/cht"
)

func TestWorkloadFlags_Load(t *testing.T) {
	file := filepath.Join(t.TempDir(), "workload.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
table:
  min_size: 16
  max_load: 4
writers: 2
keys: 500
duration: 1m
`), 0o644))

	f := &workloadFlags{file: file, readers: 3, duration: 2 * time.Second}
	w, err := f.load()
	require.NoError(t, err)

	want := defaultWorkload()
	want.Table.MinSize = 16
	want.Table.MaxLoad = 4
	want.Writers = 2
	want.Keys = 500
	want.Readers = 3
	want.Duration = 2 * time.Second
	require.Equal(t, want, w)
	require.EqualValues(t, cht.DefaultMinSize, w.Table.InitialSize)
}

func TestWorkload_Validate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*workload)
	}{
		{"no writers", func(w *workload) { w.Writers = 0 }},
		{"no keys", func(w *workload) { w.Keys = 0 }},
		{"readers without pinned keys", func(w *workload) { w.Pinned = 0 }},
		{"no duration", func(w *workload) { w.Duration = 0 }},
		{"bad table", func(w *workload) { w.Table.MaxLoad = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := defaultWorkload()
			require.NoError(t, w.Validate())
			tc.modify(&w)
			require.Error(t, w.Validate())
		})
	}
}

func TestRun(t *testing.T) {
	w := defaultWorkload()
	w.Writers = 3
	w.Keys = 2000
	w.Readers = 2
	w.Pinned = 100
	w.Duration = 300 * time.Millisecond
	w.Table.MinSize = 8

	st, rep, err := run(context.Background(), w, log.NewNopLogger())
	require.NoError(t, err)
	require.NotZero(t, st.lookups.Load())
	require.NotZero(t, st.inserts.Load())
	require.Equal(t, st.removes.Load(), st.reclaimed.Load())
	require.NotZero(t, rep.grows)
	require.Equal(t, 8, rep.finalBuckets)
}
