// Package storage holds donation image objects in an S3-compatible store.
// Objects are streamed; nothing touches local disk.
package storage

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// PutObjectOptions describe an upload. Size is the exact byte count, or -1
// when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
}

// Storage is the object store behind donation images.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete succeeds for keys that are already gone.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL usable without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ImagePrefix is the key prefix shared by every image of a donation.
func ImagePrefix(donationID string) string {
	return path.Join("donations", donationID) + "/"
}

// ImageKey returns a fresh key donations/<id>/<uuid><ext>. Keys are never
// reused, so stored objects are immutable.
func ImageKey(donationID, ext string) string {
	return ImagePrefix(donationID) + uuid.NewString() + ext
}
