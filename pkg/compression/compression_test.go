package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cachePayload = append([]byte{0xa2, 0xba, 0x0b, 0xf0}, bytes.Repeat([]byte("klass"), 64)...)

func TestCompressorsRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeGzip, TypeZstd, TypeNone} {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := New(typ, LevelDefault)
			require.NoError(t, err)
			defer Close(c)

			compressed, err := c.Compress(cachePayload)
			require.NoError(t, err)
			assert.Equal(t, typ, DetectType(compressed))

			out, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, cachePayload, out)
			assert.Equal(t, typ, c.Type())
		})
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(Type(42), LevelDefault)
	assert.Error(t, err)
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Type
	}{
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, TypeZstd},
		{"gzip", []byte{0x1f, 0x8b, 0x08}, TypeGzip},
		{"aot cache magic", []byte{0xa2, 0xba, 0x0b, 0xf0}, TypeNone},
		{"short", []byte{0x1f}, TypeNone},
		{"empty", nil, TypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.data))
		})
	}
}

func TestTypeForPath(t *testing.T) {
	assert.Equal(t, TypeZstd, TypeForPath("report.json.zst"))
	assert.Equal(t, TypeGzip, TypeForPath("report.JSON.GZ"))
	assert.Equal(t, TypeNone, TypeForPath("report.json"))
}

func TestAutoDecompress(t *testing.T) {
	t.Run("plain passes through", func(t *testing.T) {
		out, err := AutoDecompress(cachePayload)
		require.NoError(t, err)
		assert.Equal(t, cachePayload, out)
	})

	t.Run("gzip", func(t *testing.T) {
		compressed, err := NewGzipCompressor(LevelFastest).Compress(cachePayload)
		require.NoError(t, err)
		out, err := AutoDecompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, cachePayload, out)
	})

	t.Run("zstd", func(t *testing.T) {
		c, err := NewZstdCompressor(LevelBest)
		require.NoError(t, err)
		defer c.Close()
		compressed, err := c.Compress(cachePayload)
		require.NoError(t, err)
		out, err := AutoDecompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, cachePayload, out)
	})
}

func TestNewReader(t *testing.T) {
	zc, err := NewZstdCompressor(LevelDefault)
	require.NoError(t, err)
	defer zc.Close()
	zdata, err := zc.Compress(cachePayload)
	require.NoError(t, err)
	gdata, err := NewGzipCompressor(LevelDefault).Compress(cachePayload)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []byte
		want Type
	}{
		{"zstd", zdata, TypeZstd},
		{"gzip", gdata, TypeGzip},
		{"plain", cachePayload, TypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, typ, err := NewReader(bytes.NewReader(tt.in))
			require.NoError(t, err)
			defer rc.Close()
			assert.Equal(t, tt.want, typ)

			out, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, cachePayload, out)
		})
	}

	t.Run("tiny input", func(t *testing.T) {
		rc, typ, err := NewReader(bytes.NewReader([]byte{0x01}))
		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, TypeNone, typ)
		out, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01}, out)
	})
}
