package aot

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/aot-inspect/pkg/compression"
)

// Source is a random-access cache image that must be closed after use.
type Source interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Opener opens the cache image at path.
type Opener func(path string) (Source, error)

type fileSource struct {
	*os.File
	size int64
}

func (s *fileSource) Size() int64 { return s.size }

type memSource struct {
	*bytes.Reader
}

func (memSource) Close() error { return nil }

// NewMemSource wraps an in-memory cache image.
func NewMemSource(data []byte) Source {
	return memSource{bytes.NewReader(data)}
}

// Open opens a cache file. Gzip or zstd compressed images are inflated into
// memory; plain images are read in place.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var head [4]byte
	n, err := f.ReadAt(head[:], 0)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if compression.DetectType(head[:n]) == compression.TypeNone {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		return &fileSource{File: f, size: info.Size()}, nil
	}
	defer f.Close()

	rc, _, err := compression.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("inflate %s: %w", path, err)
	}
	return NewMemSource(data), nil
}
