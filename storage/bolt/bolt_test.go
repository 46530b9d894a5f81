package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/NicValentine/LoFi-Cafe/storage"
	"github.com/NicValentine/LoFi-Cafe/storage/storagetest"

	"github.com/stretchr/testify/require"
)

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ storage.Storage = &Storage{}
}

func TestBasics(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	s.Debug = true
	require.NoError(t, s.Open(context.Background()))
	defer func() {
		require.NoError(t, s.Close())
	}()

	storagetest.Run(t, s)
}
