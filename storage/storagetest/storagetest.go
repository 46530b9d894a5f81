// Package storagetest checks that a storage.Storage behaves.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/storage"

	"github.com/stretchr/testify/require"
)

// Record walks the cappuccino model and returns its record.
func Record(t *testing.T, started time.Time) *storage.RunRecord {
	t.Helper()
	ctx := context.Background()

	m, err := core.CappuccinoModel(ctx)
	require.NoError(t, err)
	s, err := core.NewScheduler(m, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetBuffer("method", core.MustChunk("cappuccinotime")))
	require.NoError(t, s.SetBuffer("DMBuffer", core.MustChunk("coffee:cappuccino pu:cappuccino")))

	w, err := s.Walk(ctx, nil)
	require.NoError(t, err)

	return storage.NewRecord(s, nil, started, w)
}

// Run exercises the given, empty Storage.
func Run(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	runs, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Empty(t, runs)

	t0 := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	first := Record(t, t0)
	second := Record(t, t0.Add(time.Minute))
	other := Record(t, t0.Add(2*time.Minute))
	other.Model = "tea"

	// Out of order on purpose.
	for _, r := range []*storage.RunRecord{second, other, first} {
		require.NoError(t, s.WriteRun(ctx, r))
	}

	got, err := s.GetRun(ctx, first.Model, first.Id)
	require.NoError(t, err)
	require.Equal(t, first.Id, got.Id)
	require.Equal(t, []string{"plan", "first"}, got.Fired)
	require.Equal(t, core.Done, got.StoppedBecause)
	require.Len(t, got.Lines, 1)
	require.Equal(t, "First espresso for the cappuccino", got.Lines[0].Text)
	require.Equal(t, 2, got.Memories["DM"])
	require.True(t, first.Started.Equal(got.Started))

	_, err = s.GetRun(ctx, first.Model, "nope")
	require.ErrorIs(t, err, storage.NotFound)
	_, err = s.GetRun(ctx, "tea", first.Id)
	require.ErrorIs(t, err, storage.NotFound)

	runs, err = s.ListRuns(ctx, first.Model)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, first.Id, runs[0].Id)
	require.Equal(t, second.Id, runs[1].Id)
	require.Nil(t, runs[0].Lines)

	runs, err = s.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, other.Id, runs[2].Id)
}
