package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/tencentyun/cos-go-sdk-v5"

	apperrors "github.com/graph-analytics/pkg/errors"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"
}

// COSStorage implements Storage on a Tencent Cloud COS bucket.
type COSStorage struct {
	client    *cos.Client
	bucketURL string
}

// NewCOSStorage creates a client for cfg's bucket.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	bucketURL, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to parse bucket URL", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to parse service URL", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{client: client, bucketURL: bucketURL.String()}, nil
}

// contentType picks the upload content type from the key's suffix.
func contentType(key string) string {
	switch path.Ext(key) {
	case ".zst":
		return "application/zstd"
	case ".gz":
		return "application/gzip"
	case ".jsonl":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func putOptions(key string) *cos.ObjectPutOptions {
	return &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType(key)},
	}
}

func downloadError(key string, err error) error {
	if cos.IsNotFoundError(err) {
		return apperrors.Newf(apperrors.CodeNotFound, "object not found: %s", key)
	}
	return apperrors.Wrap(apperrors.CodeDownloadError, fmt.Sprintf("failed to download %s from COS", key), err)
}

// Upload uploads data from reader to the specified key.
func (s *COSStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.Object.Put(ctx, k, reader, putOptions(k)); err != nil {
		return apperrors.Wrap(apperrors.CodeUploadError, fmt.Sprintf("failed to upload %s to COS", key), err)
	}
	return nil
}

// UploadFile uploads a local file to the specified key.
func (s *COSStorage) UploadFile(ctx context.Context, key string, localPath string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.Object.PutFromFile(ctx, k, localPath, putOptions(k)); err != nil {
		return apperrors.Wrap(apperrors.CodeUploadError, fmt.Sprintf("failed to upload file to %s", key), err)
	}
	return nil
}

// Download opens the object at key.
func (s *COSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Object.Get(ctx, k, nil)
	if err != nil {
		return nil, downloadError(key, err)
	}
	return resp.Body, nil
}

// DownloadFile downloads data from the specified key to a local file.
func (s *COSStorage) DownloadFile(ctx context.Context, key string, localPath string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return apperrors.Wrap(apperrors.CodeDownloadError, "failed to create directory", err)
	}
	if _, err := s.client.Object.GetToFile(ctx, k, localPath, nil); err != nil {
		return downloadError(key, err)
	}
	return nil
}

// Delete deletes the object at the specified key.
func (s *COSStorage) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.Object.Delete(ctx, k, nil); err != nil && !cos.IsNotFoundError(err) {
		return fmt.Errorf("failed to delete %s from COS: %w", key, err)
	}
	return nil
}

// Exists checks if an object exists at the specified key.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	k, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	ok, err := s.client.Object.IsExist(ctx, k)
	if err != nil {
		return false, fmt.Errorf("failed to check existence in COS: %w", err)
	}
	return ok, nil
}

// GetURL returns the object URL of key.
func (s *COSStorage) GetURL(key string) string {
	k, err := CleanKey(key)
	if err != nil {
		return ""
	}
	return s.bucketURL + "/" + k
}
