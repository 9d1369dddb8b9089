// Package blob stores protocol photos on S3 (or S3-compatible endpoints) or
// on local disk.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xelth-com/protocolos/internal/config"
	"github.com/xelth-com/protocolos/internal/media"
)

// ErrNotFound is returned by Open for a missing object.
var ErrNotFound = errors.New("object not found")

// Opener streams stored objects back, for the photo proxy.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Store is a media.BlobStore that can also be read back.
type Store interface {
	media.BlobStore
	Opener
}

// CleanKey rejects keys that could escape the bucket prefix or directory.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, `\`) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, publicURL string) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "disk":
		base := cfg.PublicBaseURL
		if base == "" {
			base = strings.TrimRight(publicURL, "/") + "/api/photos"
		}
		return NewDisk(cfg.Dir, base)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
