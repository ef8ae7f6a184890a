package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graph-analytics/pkg/compression"
	"github.com/graph-analytics/pkg/config"
	apperrors "github.com/graph-analytics/pkg/errors"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)
	return s
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "a", "b")
	s, err := NewLocalStorage(base)
	require.NoError(t, err)
	assert.Equal(t, base, s.GetBasePath())

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_UploadDownload(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "results/prim/run-1.jsonl", bytes.NewBufferString("0 1\n")))

	rc, err := s.Download(ctx, "results/prim/run-1.jsonl")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "0 1\n", string(data))

	entries, err := os.ReadDir(filepath.Join(s.GetBasePath(), "results", "prim"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestLocalStorage_Files(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "edges.txt")
	require.NoError(t, os.WriteFile(src, []byte("1 2 0.5\n"), 0644))
	require.NoError(t, s.UploadFile(ctx, "inputs/edges.txt", src))

	dst := filepath.Join(t.TempDir(), "nested", "copy.txt")
	require.NoError(t, s.DownloadFile(ctx, "inputs/edges.txt", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "1 2 0.5\n", string(data))

	err = s.UploadFile(ctx, "x", filepath.Join(t.TempDir(), "absent"))
	assert.Equal(t, apperrors.CodeUploadError, apperrors.GetErrorCode(err))
}

func TestLocalStorage_NotFound(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	_, err := s.Download(ctx, "missing.txt")
	assert.True(t, apperrors.IsNotFound(err))

	err = s.DownloadFile(ctx, "missing.txt", filepath.Join(t.TempDir(), "out"))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLocalStorage_DeleteAndExists(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "k", bytes.NewBufferString("v")))
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../outside", "a/../../outside"} {
		err := s.Upload(ctx, key, bytes.NewBufferString("x"))
		assert.True(t, apperrors.IsInvalidConfig(err), "key %q", key)
	}
	assert.Equal(t, "", s.GetURL("../x"))
	assert.Equal(t, filepath.Join(s.GetBasePath(), "a", "b.txt"), s.GetURL("/a/b.txt"))
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	s := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Upload(ctx, "k", bytes.NewBufferString("v")), context.Canceled)
	_, err := s.Download(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Exists(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"a/b", "a/b"},
		{"/a//b/", "a/b"},
		{`a\b`, "a/b"},
		{"a/./b/../c", "a/c"},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.key)
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.expected, got)
	}
}

func TestResultKey(t *testing.T) {
	assert.Equal(t, "results/labelprop/run-1.jsonl.zst", ResultKey("results", "labelprop", "run-1", compression.TypeZstd))
	assert.Equal(t, "prim/r.jsonl", ResultKey("", "prim", "r", compression.TypeNone))
}

func TestNewStorage_Local(t *testing.T) {
	s, err := NewStorage(&config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)

	traced, ok := s.(*TracedStorage)
	require.True(t, ok)
	_, ok = traced.Unwrap().(*LocalStorage)
	assert.True(t, ok)

	ctx := context.Background()
	require.NoError(t, s.Upload(ctx, "x/y", bytes.NewBufferString("z")))
	ok, err = s.Exists(ctx, "x/y")
	require.NoError(t, err)
	assert.True(t, ok)
}
