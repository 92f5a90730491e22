// Package storage keeps AOT cache archives and generated reports in an object
// store, either a local directory or Tencent Cloud COS.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aot-inspect/pkg/config"
)

// Scheme prefixes inputs that name an object in the configured store.
const Scheme = "storage://"

// Storage defines the object operations the CLI needs.
type Storage interface {
	// Put stores the reader's content under key.
	Put(ctx context.Context, key string, r io.Reader) error

	// PutFile stores a local file under key.
	PutFile(ctx context.Context, key string, localPath string) error

	// Get opens the object at key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Fetch copies the object at key to a local file.
	Fetch(ctx context.Context, key string, localPath string) error

	// Delete removes the object at key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a location for key that can be shown to users.
	URL(key string) string
}

// Type names a storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeCOS   Type = "cos"
)

// New creates the backend described by cfg.
func New(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch Type(cfg.Type) {
	case TypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	typ := Type(cfg.Type)
	if typ == "" {
		typ = TypeLocal
	}

	switch typ {
	case TypeCOS:
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	case TypeLocal:
		if cfg.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	return nil
}

// ParseRef returns the object key of a storage:// input.
func ParseRef(input string) (key string, ok bool) {
	key, ok = strings.CutPrefix(input, Scheme)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Materialize returns a local path for input. Plain paths are returned
// unchanged; storage:// references are fetched into cacheDir first.
func Materialize(ctx context.Context, st Storage, input, cacheDir string) (string, error) {
	key, ok := ParseRef(input)
	if !ok {
		return input, nil
	}
	if st == nil {
		return "", fmt.Errorf("%s requires a configured storage backend", input)
	}

	local := filepath.Join(cacheDir, filepath.FromSlash(cleanKey(key)))
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := st.Fetch(ctx, key, local); err != nil {
		return "", err
	}
	return local, nil
}

// cleanKey strips leading slashes and parent references so a key always stays
// below the directory it is joined to.
func cleanKey(key string) string {
	parts := strings.Split(key, "/")
	out := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}
