package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "topics/a.rec", []byte("one")))
	require.NoError(t, s.Put(ctx, "topics/a.rec", []byte("two")))

	data, err := s.Get(ctx, "topics/a.rec")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	require.NoError(t, s.Delete(ctx, "topics/a.rec"))
	require.NoError(t, s.Delete(ctx, "topics/a.rec"), "delete is idempotent")

	_, err = s.Get(ctx, "topics/a.rec")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "blobs")
	_, err := NewLocalStore(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStoreListSkipsTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "topics/a.rec", []byte("a")))
	require.NoError(t, s.Put(ctx, "topics/b.rec", []byte("b")))

	// A leftover temp file from a crashed write must stay invisible.
	leftover := filepath.Join(root, "topics", ".tmp-123456")
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0o644))

	names, err := s.List(ctx, "topics/")
	require.NoError(t, err)
	assert.Equal(t, []string{"topics/a.rec", "topics/b.rec"}, names)
}

func TestLocalStoreListByPrefix(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "topics/a.rec", nil))
	require.NoError(t, s.Put(ctx, "snapshots/s.rec", nil))

	names, err := s.List(ctx, "topics/")
	require.NoError(t, err)
	assert.Equal(t, []string{"topics/a.rec"}, names)
}
