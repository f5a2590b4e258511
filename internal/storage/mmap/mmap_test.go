package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapStore_Open(t *testing.T) {
	t.Run("creates and sizes a new file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ring.dat")

		store, err := Open(path, 4096)
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, int64(4096), store.Size())
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, int64(4096), info.Size())
		assert.Equal(t, make([]byte, 16), store.Bytes()[:16])
	})

	t.Run("rejects a size mismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ring.dat")
		require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

		store, err := Open(path, 4096)
		assert.ErrorIs(t, err, ErrSizeMismatch)
		assert.Nil(t, store)
	})

	t.Run("size zero maps the existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ring.dat")
		require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o644))

		store, err := Open(path, 0)
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, int64(8192), store.Size())
	})

	t.Run("size zero on a missing file fails without creating it", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ring.dat")

		_, err := Open(path, 0)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.NoFileExists(t, path)
	})

	t.Run("size zero on an empty file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ring.dat")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := Open(path, 0)
		assert.ErrorIs(t, err, ErrSizeMismatch)
	})
}

func TestMmapStore_SharedWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.dat")

	writer, err := Open(path, 4096)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer reader.Close()

	copy(writer.Bytes()[100:], "shared")

	view, err := reader.ReadAt(100, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), view)

	require.NoError(t, writer.Sync())
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), contents[100:106])
}

func TestMmapStore_ReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.dat")
	store, err := Open(path, 64)
	require.NoError(t, err)

	_, err = store.ReadAt(60, 8)
	assert.Error(t, err)
	_, err = store.ReadAt(-1, 1)
	assert.Error(t, err)

	require.NoError(t, store.Close())
	_, err = store.ReadAt(0, 1)
	assert.Error(t, err)
}

func TestMmapStore_OpenReadOnlyEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	store, err := OpenReadOnly(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), store.Size())
	assert.NoError(t, store.Close())
}
