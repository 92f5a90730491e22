package storage

import (
	"bytes"
	"context"
	"errors"
	"hash/crc64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket is an in-memory COS bucket speaking enough of the object API
// for Put, Get, Head and Delete.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[key] = body
		w.Header().Set("x-cos-hash-crc64ecma", crc(body))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := b.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, "<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>")
			}
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("x-cos-hash-crc64ecma", crc(body))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	case http.MethodDelete:
		delete(b.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func crc(body []byte) string {
	return strconv.FormatUint(crc64.Checksum(body, crc64.MakeTable(crc64.ECMA)), 10)
}

func newFakeCOS(t *testing.T) (*COSStorage, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string][]byte{}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	s, err := NewCOSStorage(&COSConfig{Endpoint: srv.URL, SecretID: "id", SecretKey: "key"})
	require.NoError(t, err)
	return s, bucket
}

func TestNewCOSStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     COSConfig
		wantErr string
	}{
		{"MissingBucket", COSConfig{Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"}, "bucket and region are required"},
		{"MissingRegion", COSConfig{Bucket: "b", SecretID: "id", SecretKey: "key"}, "bucket and region are required"},
		{"MissingCredentials", COSConfig{Bucket: "b", Region: "ap-guangzhou"}, "credentials are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewCOSStorage(&tt.cfg)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCOSStorage_URL(t *testing.T) {
	s, err := NewCOSStorage(&COSConfig{
		Bucket:    "my-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "id",
		SecretKey: "key",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://my-bucket.cos.ap-guangzhou.myqcloud.com/path/to/app.aot", s.URL("path/to/app.aot"))
}

func TestCOSStorage_RoundTrip(t *testing.T) {
	s, bucket := newFakeCOS(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "caches/app.aot", bytes.NewReader([]byte("cache bytes"))))
	assert.Equal(t, []byte("cache bytes"), bucket.objects["caches/app.aot"])

	ok, err := s.Exists(ctx, "caches/app.aot")
	require.NoError(t, err)
	assert.True(t, ok)

	dst := filepath.Join(t.TempDir(), "app.aot")
	require.NoError(t, s.Fetch(ctx, "caches/app.aot", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "cache bytes", string(data))

	require.NoError(t, s.Delete(ctx, "caches/app.aot"))
	ok, err = s.Exists(ctx, "caches/app.aot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCOSStorage_PutFile(t *testing.T) {
	s, bucket := newFakeCOS(t)
	src := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(src, []byte(`{}`), 0644))

	require.NoError(t, s.PutFile(context.Background(), "reports/r.json", src))
	assert.Equal(t, []byte(`{}`), bucket.objects["reports/r.json"])
}

func TestCOSStorage_GetMissing(t *testing.T) {
	s, _ := newFakeCOS(t)
	_, err := s.Get(context.Background(), "nope.aot")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}
