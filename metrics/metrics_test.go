package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/NicValentine/LoFi-Cafe/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveWalk(t *testing.T) {
	ctx := context.Background()

	m, err := core.CappuccinoModel(ctx)
	require.NoError(t, err)
	s, err := core.NewScheduler(m, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetBuffer("method", core.MustChunk("cappuccinotime")))
	// No plan in the buffer, so the request fails.
	require.NoError(t, s.SetBuffer("DMBuffer", core.MustChunk("coffee:cappuccino pu:latte")))

	w, err := s.Walk(ctx, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	ms := New(reg)
	ms.ObserveWalk(m.Name, w)

	assert.Equal(t, 1.0, testutil.ToFloat64(ms.Ticks.WithLabelValues("cappuccino")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.Firings.WithLabelValues("cappuccino", "plan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.RetrievalFailures.WithLabelValues("cappuccino", "DM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.Lines.WithLabelValues("cappuccino", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.Walks.WithLabelValues("cappuccino", "Done")))

	n, err := testutil.GatherAndCount(reg, "lofi_walk_strides")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type unplugged struct{}

func (unplugged) Emit(ctx context.Context, l *core.Line) error {
	return errors.New("unplugged")
}

func TestObserveErrors(t *testing.T) {
	ctx := context.Background()

	m, err := core.CappuccinoModel(ctx)
	require.NoError(t, err)
	s, err := core.NewScheduler(m, nil)
	require.NoError(t, err)
	s.Sink = unplugged{}
	require.NoError(t, s.SetBuffer("method", core.MustChunk("cappuccinotime")))
	require.NoError(t, s.SetBuffer("DMBuffer", core.MustChunk("coffee:cappuccino pu:latte")))

	w, err := s.Walk(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, core.Done, w.StoppedBecause)
	require.NotEmpty(t, w.Errors())

	ms := New(prometheus.NewRegistry())
	ms.ObserveWalk(m.Name, w)

	assert.Equal(t, float64(len(w.Errors())), testutil.ToFloat64(ms.Errors.WithLabelValues("cappuccino")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.Walks.WithLabelValues("cappuccino", "Done")))
}
