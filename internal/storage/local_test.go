package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	return backend
}

func writeTestFile(t *testing.T, b *LocalBackend, sessionID, name, content string) {
	t.Helper()
	err := b.WriteFile(context.Background(), sessionID, name, bytes.NewReader([]byte(content)), int64(len(content)))
	require.NoError(t, err)
}

func TestLocalBackend_SessionLifecycle(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	roots, err := backend.ListSessionRoots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)

	require.NoError(t, backend.CreateSession(ctx, "alpha"))
	// Creating the same session twice must not fail.
	require.NoError(t, backend.CreateSession(ctx, "alpha"))

	roots, err = backend.ListSessionRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "alpha", roots[0].ID)
	assert.False(t, roots[0].CreatedAt.IsZero())

	require.NoError(t, backend.DeleteSession(ctx, "alpha"))
	// Deleting an absent session is a no-op.
	require.NoError(t, backend.DeleteSession(ctx, "alpha"))

	roots, err = backend.ListSessionRoots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestLocalBackend_ListFilesExcludesReserved(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.CreateSession(ctx, "alpha"))
	writeTestFile(t, backend, "alpha", "report.txt", "hello")
	writeTestFile(t, backend, "alpha", "store.json", "{}")
	writeTestFile(t, backend, "alpha", "vectors.index", "binary")

	files, err := backend.ListFiles(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"report.txt"}, files)
}

func TestLocalBackend_ListFilesMissingSession(t *testing.T) {
	backend := newTestBackend(t)

	files, err := backend.ListFiles(context.Background(), "never-created")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalBackend_WriteOverwrites(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	writeTestFile(t, backend, "alpha", "a.txt", "first")
	writeTestFile(t, backend, "alpha", "a.txt", "second")

	rc, err := backend.ReadFile(ctx, "alpha", "a.txt")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestLocalBackend_ReadAndDeleteMissingFile(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()
	require.NoError(t, backend.CreateSession(ctx, "alpha"))

	_, err := backend.ReadFile(ctx, "alpha", "ghost.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)

	err = backend.DeleteFile(ctx, "alpha", "ghost.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalBackend_DeleteSessionRemovesEverything(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	writeTestFile(t, backend, "alpha", "a.txt", "content")
	writeTestFile(t, backend, "alpha", "store.json", "{}")

	require.NoError(t, backend.DeleteSession(ctx, "alpha"))

	_, err := os.Stat(filepath.Join(backend.root, "alpha"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalBackend_Materialize(t *testing.T) {
	backend := newTestBackend(t)
	writeTestFile(t, backend, "alpha", "a.txt", "content")

	dir, cleanup, err := backend.Materialize(context.Background(), "alpha")
	require.NoError(t, err)
	defer cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name())

	// The local backend hands out the live session dir; cleanup must not
	// remove it.
	cleanup()
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("store.json"))
	assert.True(t, IsReserved("vectors.index"))
	assert.True(t, IsReserved(".keep"))
	assert.False(t, IsReserved("report.pdf"))
	assert.False(t, IsReserved("notes.txt"))
}
