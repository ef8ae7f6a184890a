package storage

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/graph-analytics/pkg/telemetry"
)

// TracedStorage records a span per storage call.
type TracedStorage struct {
	inner   Storage
	backend string
	tracer  trace.Tracer
}

// NewTracedStorage wraps s. backend labels the spans.
func NewTracedStorage(s Storage, backend string) *TracedStorage {
	if backend == "" {
		backend = string(StorageTypeLocal)
	}
	return &TracedStorage{inner: s, backend: backend, tracer: telemetry.Tracer("storage")}
}

// Unwrap returns the wrapped backend.
func (t *TracedStorage) Unwrap() Storage {
	return t.inner
}

func (t *TracedStorage) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "storage."+op, trace.WithAttributes(
		attribute.String("storage.backend", t.backend),
		attribute.String("storage.key", key),
	))
}

func (t *TracedStorage) Upload(ctx context.Context, key string, reader io.Reader) (err error) {
	ctx, span := t.start(ctx, "Upload", key)
	defer func() { telemetry.EndSpan(span, err) }()
	return t.inner.Upload(ctx, key, reader)
}

func (t *TracedStorage) UploadFile(ctx context.Context, key string, localPath string) (err error) {
	ctx, span := t.start(ctx, "UploadFile", key)
	defer func() { telemetry.EndSpan(span, err) }()
	return t.inner.UploadFile(ctx, key, localPath)
}

func (t *TracedStorage) Download(ctx context.Context, key string) (rc io.ReadCloser, err error) {
	ctx, span := t.start(ctx, "Download", key)
	defer func() { telemetry.EndSpan(span, err) }()
	return t.inner.Download(ctx, key)
}

func (t *TracedStorage) DownloadFile(ctx context.Context, key string, localPath string) (err error) {
	ctx, span := t.start(ctx, "DownloadFile", key)
	defer func() { telemetry.EndSpan(span, err) }()
	return t.inner.DownloadFile(ctx, key, localPath)
}

func (t *TracedStorage) Delete(ctx context.Context, key string) (err error) {
	ctx, span := t.start(ctx, "Delete", key)
	defer func() { telemetry.EndSpan(span, err) }()
	return t.inner.Delete(ctx, key)
}

func (t *TracedStorage) Exists(ctx context.Context, key string) (ok bool, err error) {
	ctx, span := t.start(ctx, "Exists", key)
	defer func() { telemetry.EndSpan(span, err) }()
	return t.inner.Exists(ctx, key)
}

func (t *TracedStorage) GetURL(key string) string {
	return t.inner.GetURL(key)
}
