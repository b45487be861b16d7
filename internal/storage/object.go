package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docchat/internal/config"
)

// ObjectBackend stores sessions in an S3-compatible bucket. Object stores have
// no native directory concept, so every session carries a zero-byte ".keep"
// marker object whose creation time doubles as the session creation time.
type ObjectBackend struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectBackend parses an "s3://bucket[/prefix]" root and connects to the
// configured endpoint. The bucket is created if it does not exist yet.
func NewObjectBackend(root string, cfg config.S3Config) (*ObjectBackend, error) {
	trimmed := strings.TrimPrefix(root, "s3://")
	bucket, prefix, _ := strings.Cut(trimmed, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid object storage root %q", root)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage failed: %w", err)
	}

	b := &ObjectBackend{client: client, bucket: bucket, prefix: prefix}
	if err := b.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *ObjectBackend) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket failed: %w", err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket failed: %w", err)
	}
	return nil
}

func (b *ObjectBackend) key(sessionID, name string) string {
	return b.prefix + sessionID + "/" + name
}

func (b *ObjectBackend) ListSessionRoots(ctx context.Context) ([]SessionInfo, error) {
	objects := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    b.prefix,
		Recursive: true,
	})

	var sessions []SessionInfo
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("list session roots failed: %w", obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, b.prefix)
		if path.Base(rel) != KeepMarker {
			continue
		}
		sessions = append(sessions, SessionInfo{
			ID:        path.Dir(rel),
			CreatedAt: obj.LastModified,
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (b *ObjectBackend) ListFiles(ctx context.Context, sessionID string) ([]string, error) {
	objects := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    b.key(sessionID, ""),
		Recursive: true,
	})

	var names []string
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("list session files failed: %w", obj.Err)
		}
		name := path.Base(obj.Key)
		if IsReserved(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (b *ObjectBackend) CreateSession(ctx context.Context, sessionID string) error {
	_, err := b.client.PutObject(
		ctx,
		b.bucket,
		b.key(sessionID, KeepMarker),
		bytes.NewReader(nil),
		0,
		minio.PutObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("create session marker failed: %w", err)
	}
	return nil
}

func (b *ObjectBackend) DeleteSession(ctx context.Context, sessionID string) error {
	objects := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    b.key(sessionID, ""),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("list session objects failed: %w", obj.Err)
		}
		if err := b.client.RemoveObject(ctx, b.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove session object failed: %w", err)
		}
	}
	return nil
}

func (b *ObjectBackend) WriteFile(ctx context.Context, sessionID, name string, r io.Reader, size int64) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key(sessionID, name), r, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put object failed: %w", err)
	}
	return nil
}

func (b *ObjectBackend) ReadFile(ctx context.Context, sessionID, name string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.key(sessionID, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object failed: %w", err)
	}
	// GetObject is lazy; Stat forces the request so absence surfaces here.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("stat object failed: %w", err)
	}
	return obj, nil
}

func (b *ObjectBackend) DeleteFile(ctx context.Context, sessionID, name string) error {
	key := b.key(sessionID, name)
	if _, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrFileNotFound
		}
		return fmt.Errorf("stat object failed: %w", err)
	}
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object failed: %w", err)
	}
	return nil
}

// Materialize downloads the session's objects into a temp directory. The
// cleanup removes the directory; callers must defer it so repeated failed
// runs do not leak disk space.
func (b *ObjectBackend) Materialize(ctx context.Context, sessionID string) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", "docchat-session-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir failed: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tempDir) }

	objects := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    b.key(sessionID, ""),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			cleanup()
			return "", nil, fmt.Errorf("list session objects failed: %w", obj.Err)
		}
		name := path.Base(obj.Key)
		if name == KeepMarker {
			continue
		}
		localPath := filepath.Join(tempDir, name)
		if err := b.client.FGetObject(ctx, b.bucket, obj.Key, localPath, minio.GetObjectOptions{}); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("download object failed: %w", err)
		}
	}
	return tempDir, cleanup, nil
}
