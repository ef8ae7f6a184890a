// Package compression wraps export and input streams in gzip or zstd
// codecs, chosen by name or detected from magic bytes.
package compression

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/graph-analytics/pkg/errors"
)

// Type identifies a codec.
type Type string

const (
	TypeNone Type = "none"
	TypeGzip Type = "gzip"
	TypeZstd Type = "zstd"
)

// Extension returns the file suffix conventionally used for the type.
func (t Type) Extension() string {
	switch t {
	case TypeGzip:
		return ".gz"
	case TypeZstd:
		return ".zst"
	default:
		return ""
	}
}

// ParseType maps a configured name to a Type. The empty string means none.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TypeNone, nil
	case "gzip", "gz":
		return TypeGzip, nil
	case "zstd", "zst":
		return TypeZstd, nil
	default:
		return TypeNone, apperrors.InvalidConfig("unknown compression %q", s)
	}
}

// Level trades speed against ratio.
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 3
	LevelBest    Level = 9
)

// Codec opens compressing writers and decompressing readers.
type Codec interface {
	Type() Type
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// New returns the codec for t.
func New(t Type, level Level) (Codec, error) {
	switch t {
	case TypeGzip:
		return NewGzipCodec(level), nil
	case TypeZstd:
		return NewZstdCodec(level), nil
	case TypeNone, "":
		return NoOpCodec{}, nil
	default:
		return nil, apperrors.InvalidConfig("unknown compression %q", t)
	}
}

// ============================================================================
// Gzip
// ============================================================================

// GzipCodec is the gzip codec.
type GzipCodec struct {
	level int
}

// NewGzipCodec creates a gzip codec.
func NewGzipCodec(level Level) *GzipCodec {
	switch level {
	case LevelFastest:
		return &GzipCodec{level: gzip.BestSpeed}
	case LevelBest:
		return &GzipCodec{level: gzip.BestCompression}
	default:
		return &GzipCodec{level: gzip.DefaultCompression}
	}
}

// Type returns TypeGzip.
func (c *GzipCodec) Type() Type { return TypeGzip }

// NewWriter implements Codec.
func (c *GzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	gw, err := gzip.NewWriterLevel(w, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return gw, nil
}

// NewReader implements Codec.
func (c *GzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return gr, nil
}

// ============================================================================
// Zstd
// ============================================================================

// ZstdCodec is the zstd codec.
type ZstdCodec struct {
	level zstd.EncoderLevel
}

// NewZstdCodec creates a zstd codec.
func NewZstdCodec(level Level) *ZstdCodec {
	switch level {
	case LevelFastest:
		return &ZstdCodec{level: zstd.SpeedFastest}
	case LevelBest:
		return &ZstdCodec{level: zstd.SpeedBestCompression}
	default:
		return &ZstdCodec{level: zstd.SpeedDefault}
	}
}

// Type returns TypeZstd.
func (c *ZstdCodec) Type() Type { return TypeZstd }

// NewWriter implements Codec.
func (c *ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return zw, nil
}

// NewReader implements Codec.
func (c *ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return zr.IOReadCloser(), nil
}

// ============================================================================
// No-op
// ============================================================================

// NoOpCodec passes bytes through.
type NoOpCodec struct{}

// Type returns TypeNone.
func (NoOpCodec) Type() Type { return TypeNone }

// NewWriter implements Codec. Closing the writer does not close w.
func (NoOpCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

// NewReader implements Codec.
func (NoOpCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// ============================================================================
// Helpers
// ============================================================================

// Compress encodes data in one shot.
func Compress(c Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write %s data: %w", c.Type(), err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s writer: %w", c.Type(), err)
	}
	return buf.Bytes(), nil
}

// Decompress decodes data in one shot.
func Decompress(c Codec, data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// DetectType recognises gzip (1f 8b) and zstd (28 b5 2f fd) headers.
// Anything else is TypeNone.
func DetectType(header []byte) Type {
	if len(header) >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd {
		return TypeZstd
	}
	if len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b {
		return TypeGzip
	}
	return TypeNone
}

// NewAutoReader peeks at r's header and returns a reader that decodes it
// with the detected codec.
func NewAutoReader(r io.Reader) (io.ReadCloser, Type, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, TypeNone, fmt.Errorf("failed to read header: %w", err)
	}
	t := DetectType(header)
	codec, err := New(t, LevelDefault)
	if err != nil {
		return nil, t, err
	}
	rc, err := codec.NewReader(br)
	if err != nil {
		return nil, t, err
	}
	return rc, t, nil
}
