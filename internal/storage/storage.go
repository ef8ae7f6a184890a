// Package storage stores exported results and fetches input edge lists on
// the local filesystem or Tencent Cloud COS.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/graph-analytics/pkg/compression"
	"github.com/graph-analytics/pkg/config"
	apperrors "github.com/graph-analytics/pkg/errors"
)

// Storage defines the interface for object storage operations. Keys are
// slash-separated relative paths.
type Storage interface {
	// Upload uploads data from reader to the specified key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile uploads a local file to the specified key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download opens the object at key. A missing object is NOT_FOUND.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// DownloadFile downloads data from the specified key to a local file.
	DownloadFile(ctx context.Context, key string, localPath string) error

	// Delete deletes the object at key. Deleting a missing object succeeds.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL or path of key.
	GetURL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates the backend cfg selects, wrapped in tracing.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	var (
		s   Storage
		err error
	)
	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		s, err = NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		s, err = NewLocalStorage(cfg.LocalPath)
	}
	if err != nil {
		return nil, err
	}
	return NewTracedStorage(s, cfg.Type), nil
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return apperrors.New(apperrors.CodeConfigError, "storage config is nil")
	}

	storageType := StorageType(cfg.Type)
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	switch storageType {
	case StorageTypeCOS:
		if cfg.Bucket == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS bucket is required")
		}
		if cfg.Region == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS credentials are required")
		}
	case StorageTypeLocal:
		if cfg.LocalPath == "" {
			return apperrors.New(apperrors.CodeConfigError, "local storage path is required")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}
	return nil
}

// CleanKey normalises key and rejects keys that are empty or escape the
// storage root.
func CleanKey(key string) (string, error) {
	k := strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
	k = path.Clean(k)
	if key == "" || k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", apperrors.InvalidConfig("invalid storage key %q", key)
	}
	return k, nil
}

// ResultKey is the key a run's exported rows are stored under, e.g.
// results/labelprop/run-1.jsonl.zst.
func ResultKey(prefix, algorithm, runID string, codec compression.Type) string {
	name := fmt.Sprintf("%s.jsonl%s", runID, codec.Extension())
	return path.Join(prefix, algorithm, name)
}
