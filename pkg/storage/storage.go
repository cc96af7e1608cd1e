package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/propos4l/proposal-engine/pkg/logger"
	"github.com/propos4l/proposal-engine/pkg/storage/local"
	"github.com/propos4l/proposal-engine/pkg/storage/minio"
)

// Kind selects a storage backend.
type Kind string

const (
	KindMinio Kind = "minio"
	KindLocal Kind = "local"
)

// Storage holds uploaded proposal PDFs. Keys are caller-chosen and stable;
// the worker reads the same key the API stored.
type Storage interface {
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// New builds the configured storage backend.
func New(kind Kind, log logger.Logger) (Storage, error) {
	switch kind {
	case KindMinio:
		return minio.NewStorage(log)
	case KindLocal:
		return local.NewStorage(log)
	default:
		return nil, fmt.Errorf("unsupported storage kind: %s", kind)
	}
}
