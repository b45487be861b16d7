package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalBackend stores each session as a directory under root.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root failed: %w", err)
	}
	return &LocalBackend{root: root}, nil
}

func (b *LocalBackend) sessionDir(sessionID string) string {
	return filepath.Join(b.root, sessionID)
}

func (b *LocalBackend) ListSessionRoots(ctx context.Context) ([]SessionInfo, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("read storage root failed: %w", err)
	}

	var sessions []SessionInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat session dir failed: %w", err)
		}
		sessions = append(sessions, SessionInfo{
			ID:        entry.Name(),
			CreatedAt: info.ModTime(),
		})
	}
	return sessions, nil
}

func (b *LocalBackend) ListFiles(ctx context.Context, sessionID string) ([]string, error) {
	entries, err := os.ReadDir(b.sessionDir(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session dir failed: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || IsReserved(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (b *LocalBackend) CreateSession(ctx context.Context, sessionID string) error {
	if err := os.MkdirAll(b.sessionDir(sessionID), 0o755); err != nil {
		return fmt.Errorf("create session dir failed: %w", err)
	}
	return nil
}

func (b *LocalBackend) DeleteSession(ctx context.Context, sessionID string) error {
	if err := os.RemoveAll(b.sessionDir(sessionID)); err != nil {
		return fmt.Errorf("remove session dir failed: %w", err)
	}
	return nil
}

func (b *LocalBackend) WriteFile(ctx context.Context, sessionID, name string, r io.Reader, size int64) error {
	dir := b.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir failed: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write file failed: %w", err)
	}
	return nil
}

func (b *LocalBackend) ReadFile(ctx context.Context, sessionID, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(b.sessionDir(sessionID), name))
	if os.IsNotExist(err) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open file failed: %w", err)
	}
	return f, nil
}

func (b *LocalBackend) DeleteFile(ctx context.Context, sessionID, name string) error {
	err := os.Remove(filepath.Join(b.sessionDir(sessionID), name))
	if os.IsNotExist(err) {
		return ErrFileNotFound
	}
	if err != nil {
		return fmt.Errorf("delete file failed: %w", err)
	}
	return nil
}

// Materialize hands out the session directory directly; no copy is needed
// when the files are already on the local filesystem.
func (b *LocalBackend) Materialize(ctx context.Context, sessionID string) (string, func(), error) {
	return b.sessionDir(sessionID), func() {}, nil
}
