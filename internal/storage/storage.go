package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains object storage abstractions for meeting recordings.
// Implementations stream the upload body; nothing is staged on local disk.

// ErrObjectExists is returned by Put when Upsert is false and the key is already taken.
var ErrObjectExists = errors.New("object already exists")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// ContentType and Metadata are optional. Upsert=false refuses to overwrite an existing key.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Upsert      bool
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an uploaded object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the recording bucket as seen by the upload flow.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the unauthenticated URL of an object in a public bucket.
	PublicURL(key string) string
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// FetchURL resolves the URL handed to the processing backend: a signed URL when ttl > 0,
// the public URL otherwise.
func FetchURL(ctx context.Context, s Storage, key string, ttl time.Duration) (string, error) {
	if ttl > 0 {
		return s.PresignGet(ctx, key, ttl)
	}
	return s.PublicURL(key), nil
}
