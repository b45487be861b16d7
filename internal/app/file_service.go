package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"docchat/internal/storage"
)

type FileService struct {
	backend       storage.Backend
	maxFileSize   int64
	maxBatchFiles int
}

func NewFileService(backend storage.Backend, maxFileSize int64, maxBatchFiles int) *FileService {
	if maxFileSize <= 0 {
		maxFileSize = 50 << 20
	}
	if maxBatchFiles <= 0 {
		maxBatchFiles = 40
	}
	return &FileService{
		backend:       backend,
		maxFileSize:   maxFileSize,
		maxBatchFiles: maxBatchFiles,
	}
}

// UploadItem is one pending file in a batch. Open is called at most once,
// when the file's turn comes.
type UploadItem struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// UploadResult reports the outcome for a single file of a batch.
type UploadResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// List returns the session's user files. A session with no files, or one
// that does not exist yet, yields an empty list rather than an error.
func (s *FileService) List(ctx context.Context, sessionID string) ([]string, error) {
	if !isValidSessionName(sessionID) {
		return nil, ErrInvalidInput
	}
	return s.backend.ListFiles(ctx, sessionID)
}

// Upload validates the size limit before any storage write, then delegates
// to the backend. Same-named files are overwritten.
func (s *FileService) Upload(ctx context.Context, sessionID, name string, size int64, r io.Reader) error {
	if !isValidSessionName(sessionID) {
		return ErrInvalidInput
	}
	if size > s.maxFileSize {
		return fmt.Errorf("%w: %s (%d bytes, limit %d)", ErrFileTooLarge, name, size, s.maxFileSize)
	}
	// Strip any path the client sent along; uploads land flat in the session.
	return s.backend.WriteFile(ctx, sessionID, filepath.Base(name), r, size)
}

// UploadBatch rejects oversized batches before touching storage, then
// processes the files strictly one at a time. A failed file is recorded in
// its result and does not abort the remaining uploads.
func (s *FileService) UploadBatch(ctx context.Context, sessionID string, items []UploadItem) ([]UploadResult, error) {
	if !isValidSessionName(sessionID) {
		return nil, ErrInvalidInput
	}
	if len(items) == 0 {
		return nil, ErrInvalidInput
	}
	if len(items) > s.maxBatchFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, len(items), s.maxBatchFiles)
	}

	results := make([]UploadResult, 0, len(items))
	for _, item := range items {
		results = append(results, s.uploadOne(ctx, sessionID, item))
	}
	return results, nil
}

func (s *FileService) uploadOne(ctx context.Context, sessionID string, item UploadItem) UploadResult {
	result := UploadResult{Name: item.Name}

	if item.Size > s.maxFileSize {
		result.Error = fmt.Sprintf("file exceeds the maximum allowed size (%d bytes)", s.maxFileSize)
		return result
	}
	rc, err := item.Open()
	if err != nil {
		result.Error = "open upload failed"
		return result
	}
	defer rc.Close()

	if err := s.backend.WriteFile(ctx, sessionID, filepath.Base(item.Name), rc, item.Size); err != nil {
		result.Error = "store upload failed"
		return result
	}
	result.OK = true
	return result
}

// Delete removes one file. Deleting an absent file is an error because it
// signals that the caller's view of the session has drifted.
func (s *FileService) Delete(ctx context.Context, sessionID, name string) error {
	if !isValidSessionName(sessionID) {
		return ErrInvalidInput
	}
	return s.backend.DeleteFile(ctx, sessionID, filepath.Base(name))
}
