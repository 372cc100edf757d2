// Package storage archives small text blobs, such as model responses that
// failed validation, in an object store. MinIO (or any S3 compatible
// server) and Google Cloud Storage are supported backends.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizmind/apiserver/config"
)

const textContentType = "text/plain; charset=utf-8"

// ObjectStorage is a single bucket in one of the supported backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	Bucket() string
	Close() error
}

// Storage is the archive used by the quiz service.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open connects to the backend named in cfg.Backend and makes sure its
// bucket exists.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend ObjectStorage
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "minio":
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// PutText stores text under key as a UTF-8 plain text object.
func (s *Storage) PutText(ctx context.Context, key, text string) error {
	return s.backend.PutObject(ctx, key, []byte(text), textContentType)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

func (s *Storage) Close() error {
	return s.backend.Close()
}
