package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cfg "github.com/propos4l/proposal-engine/config"
	"github.com/propos4l/proposal-engine/pkg/logger"
)

// Storage keeps uploaded PDFs on the local filesystem. Useful for
// single-node deployments and tests; the MinIO backend covers everything
// else.
type Storage struct {
	root   string
	logger logger.Logger
}

func NewStorage(log logger.Logger) (*Storage, error) {
	dir := cfg.GetServerConfig().LocalDir
	return NewStorageAt(dir, log)
}

func NewStorageAt(dir string, log logger.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Storage{root: dir, logger: log}, nil
}

func (s *Storage) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *Storage) Store(_ context.Context, reader io.Reader, key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent dir: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return key, nil
}

func (s *Storage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// CleanupBefore removes files last modified before threshold.
func (s *Storage) CleanupBefore(_ context.Context, threshold time.Time) error {
	return filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if info.ModTime().Before(threshold) {
			if rmErr := os.Remove(path); rmErr != nil {
				s.logger.Error("Failed to delete expired file",
					logger.String("path", path),
					logger.Error(rmErr),
				)
				return nil
			}
			s.logger.Info("Deleted expired file",
				logger.String("path", path),
				logger.Time("lastModified", info.ModTime()),
			)
		}
		return nil
	})
}
