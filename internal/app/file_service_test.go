package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/storage"
)

func newFileService(t *testing.T, maxSize int64, maxBatch int) *FileService {
	t.Helper()
	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	return NewFileService(backend, maxSize, maxBatch)
}

func readerItem(name, content string) UploadItem {
	return UploadItem{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func TestFileService_UploadListDelete(t *testing.T) {
	svc := newFileService(t, 0, 0)
	ctx := context.Background()

	err := svc.Upload(ctx, "alpha", "notes.txt", 5, bytes.NewReader([]byte("hello")))
	require.NoError(t, err)

	files, err := svc.List(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, files)

	require.NoError(t, svc.Delete(ctx, "alpha", "notes.txt"))

	files, err = svc.List(ctx, "alpha")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileService_UploadStripsPath(t *testing.T) {
	svc := newFileService(t, 0, 0)
	ctx := context.Background()

	err := svc.Upload(ctx, "alpha", "../../etc/passwd.txt", 4, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	files, err := svc.List(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"passwd.txt"}, files)
}

func TestFileService_UploadTooLarge(t *testing.T) {
	svc := newFileService(t, 10, 0)

	err := svc.Upload(context.Background(), "alpha", "big.txt", 11, bytes.NewReader(make([]byte, 11)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	files, err := svc.List(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileService_UploadBatchLimits(t *testing.T) {
	svc := newFileService(t, 0, 2)
	ctx := context.Background()

	_, err := svc.UploadBatch(ctx, "alpha", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	items := []UploadItem{
		readerItem("a.txt", "a"),
		readerItem("b.txt", "b"),
		readerItem("c.txt", "c"),
	}
	_, err = svc.UploadBatch(ctx, "alpha", items)
	assert.ErrorIs(t, err, ErrTooManyFiles)

	// Nothing should have been written on batch rejection.
	files, err := svc.List(ctx, "alpha")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileService_UploadBatchPerFileIsolation(t *testing.T) {
	svc := newFileService(t, 5, 10)
	ctx := context.Background()

	items := []UploadItem{
		readerItem("ok.txt", "fine"),
		readerItem("huge.txt", "way too large"),
		{
			Name: "broken.txt",
			Size: 3,
			Open: func() (io.ReadCloser, error) { return nil, errors.New("boom") },
		},
		readerItem("also-ok.txt", "good"),
	}

	results, err := svc.UploadBatch(ctx, "alpha", items)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)
	assert.False(t, results[2].OK)
	assert.True(t, results[3].OK)

	files, err := svc.List(ctx, "alpha")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ok.txt", "also-ok.txt"}, files)
}

func TestFileService_RejectsInvalidSessionID(t *testing.T) {
	svc := newFileService(t, 0, 0)
	ctx := context.Background()

	_, err := svc.List(ctx, "..")
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = svc.Upload(ctx, "..", "a.txt", 1, bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadBatch(ctx, "..", []UploadItem{readerItem("a.txt", "x")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = svc.Delete(ctx, "..", "a.txt")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFileService_DeleteMissingFile(t *testing.T) {
	svc := newFileService(t, 0, 0)

	err := svc.Delete(context.Background(), "alpha", "ghost.txt")
	assert.ErrorIs(t, err, storage.ErrFileNotFound)
}
