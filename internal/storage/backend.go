package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"docchat/internal/config"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

// Reserved artifact names. The index metadata and vector files live next to
// the user's uploads inside the session path and must never show up in file
// listings; the marker object gives the object backend a directory notion.
const (
	MetaSuffix    = ".json"
	VectorsSuffix = ".index"
	KeepMarker    = ".keep"
)

// SessionInfo is a session root as reported by the backend. CreatedAt comes
// from directory mtime (local) or marker-object creation time (object store),
// so ordering is not guaranteed stable across backends.
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
}

// Backend is the uniform contract over session directories and the files in
// them. Both implementations must behave identically: listings exclude
// reserved artifacts, session creation and deletion are idempotent, file
// writes overwrite, and file reads/deletes on absent names return
// ErrFileNotFound.
type Backend interface {
	ListSessionRoots(ctx context.Context) ([]SessionInfo, error)
	ListFiles(ctx context.Context, sessionID string) ([]string, error)
	CreateSession(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	WriteFile(ctx context.Context, sessionID, name string, r io.Reader, size int64) error
	ReadFile(ctx context.Context, sessionID, name string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, sessionID, name string) error

	// Materialize returns a local directory containing the session's files,
	// for operations that need a real filesystem (document loading). The
	// local backend hands out the session directory itself; the object
	// backend downloads into a temp directory. cleanup must be called on
	// every exit path.
	Materialize(ctx context.Context, sessionID string) (dir string, cleanup func(), err error)
}

// IsReserved reports whether name is an ingestion artifact rather than user
// content.
func IsReserved(name string) bool {
	return name == KeepMarker ||
		strings.HasSuffix(name, MetaSuffix) ||
		strings.HasSuffix(name, VectorsSuffix)
}

// Open selects the backend from the configured root location. This is the
// single point that branches on backend identity; everything above works
// against the Backend interface.
func Open(cfg *config.Config) (Backend, error) {
	if strings.HasPrefix(cfg.Storage.Root, "s3://") {
		return NewObjectBackend(cfg.Storage.Root, cfg.S3)
	}
	return NewLocalBackend(cfg.Storage.Root)
}
