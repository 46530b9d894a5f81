package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/NicValentine/LoFi-Cafe/storage"
	"github.com/NicValentine/LoFi-Cafe/storage/storagetest"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImpl(t *testing.T) {
	var _ storage.Storage = &Storage{}
}

func TestBasics(t *testing.T) {
	storagetest.Run(t, newTestStorage(t))
}

func TestMigrateTwice(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.migrate())
}
