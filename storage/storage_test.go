package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/NicValentine/LoFi-Cafe/storage"
	"github.com/NicValentine/LoFi-Cafe/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpl(t *testing.T) {
	var _ storage.Storage = &storage.NoopStorage{}
}

func TestNewId(t *testing.T) {
	t0 := time.Now()
	a := storage.NewId(t0)
	b := storage.NewId(t0)
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
	assert.Less(t, b, storage.NewId(t0.Add(time.Millisecond)))
}

func TestRecord(t *testing.T) {
	r := storagetest.Record(t, time.Now())
	assert.Equal(t, "cappuccino", r.Model)
	assert.Equal(t, []string{"plan", "first"}, r.Fired)
	assert.Equal(t, 2, r.Ticks)
	assert.Nil(t, r.Summary().Lines)
	assert.NotNil(t, r.Lines)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	s := &storage.NoopStorage{}
	require.NoError(t, s.WriteRun(ctx, &storage.RunRecord{Id: "x"}))
	_, err := s.GetRun(ctx, "", "x")
	assert.ErrorIs(t, err, storage.NotFound)
	require.NoError(t, s.Close())
}
