package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-analytics/pkg/errors"
)

var payload = []byte(strings.Repeat(`{"node":1,"value":42}`+"\n", 200))

func TestCodecs_RoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		for _, level := range []Level{LevelFastest, LevelDefault, LevelBest} {
			t.Run(string(typ), func(t *testing.T) {
				codec, err := New(typ, level)
				require.NoError(t, err)
				assert.Equal(t, typ, codec.Type())

				packed, err := Compress(codec, payload)
				require.NoError(t, err)
				if typ != TypeNone {
					assert.Less(t, len(packed), len(payload))
				}
				assert.Equal(t, typ, DetectType(packed))

				unpacked, err := Decompress(codec, packed)
				require.NoError(t, err)
				assert.Equal(t, payload, unpacked)
			})
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
	}{
		{"", TypeNone},
		{"none", TypeNone},
		{"GZIP", TypeGzip},
		{"gz", TypeGzip},
		{"zstd", TypeZstd},
		{" zst ", TypeZstd},
	}
	for _, tt := range tests {
		typ, err := ParseType(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, typ, tt.input)
	}

	_, err := ParseType("brotli")
	assert.True(t, apperrors.IsInvalidConfig(err))
	_, err = New("lz4", LevelDefault)
	assert.True(t, apperrors.IsInvalidConfig(err))
}

func TestType_Extension(t *testing.T) {
	assert.Equal(t, ".gz", TypeGzip.Extension())
	assert.Equal(t, ".zst", TypeZstd.Extension())
	assert.Equal(t, "", TypeNone.Extension())
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		header   []byte
		expected Type
	}{
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, TypeZstd},
		{"gzip", []byte{0x1f, 0x8b, 0x08}, TypeGzip},
		{"plain", []byte("0 1\n"), TypeNone},
		{"short", []byte{0x1f}, TypeNone},
		{"empty", nil, TypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectType(tt.header))
		})
	}
}

func TestNewAutoReader(t *testing.T) {
	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		t.Run(string(typ), func(t *testing.T) {
			codec, err := New(typ, LevelDefault)
			require.NoError(t, err)
			packed, err := Compress(codec, payload)
			require.NoError(t, err)

			r, detected, err := NewAutoReader(bytes.NewReader(packed))
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, typ, detected)

			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, data)
		})
	}
}

func TestNewAutoReader_ShortInput(t *testing.T) {
	r, typ, err := NewAutoReader(strings.NewReader("7"))
	require.NoError(t, err)
	assert.Equal(t, TypeNone, typ)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "7", string(data))
}

func TestNoOpCodec_WriterDoesNotCloseTarget(t *testing.T) {
	var buf bytes.Buffer
	w, err := NoOpCodec{}.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "abc", buf.String())
}
