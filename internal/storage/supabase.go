package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	storage_go "github.com/supabase-community/storage-go"

	"meetnote/internal/supabase"
)

// supabaseStorage implements Storage against the Supabase Storage REST API.
// It is safe for concurrent use by multiple goroutines.
type supabaseStorage struct {
	client *supabase.Client
	bucket string

	// storage-go rewrites shared transport headers per upload.
	mu sync.Mutex
}

// NewSupabase creates a storage client for one bucket of a Supabase project.
// No network call is made; the bucket is expected to exist and be public unless signed URLs are used.
func NewSupabase(client *supabase.Client, bucket string) (Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	return &supabaseStorage{client: client, bucket: bucket}, nil
}

// sdk returns the storage client once ctx is still live. The SDK takes no context, so
// cancellation is only observed before a call starts.
func (s *supabaseStorage) sdk(ctx context.Context) (*storage_go.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.client.Storage()
}

// Put uploads the object body as-is; the Supabase API rejects an existing key unless upsert is set.
func (s *supabaseStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	sdk, err := s.sdk(ctx)
	if err != nil {
		return ObjectInfo{}, err
	}

	fo := storage_go.FileOptions{Upsert: &opt.Upsert}
	if opt.ContentType != "" {
		fo.ContentType = &opt.ContentType
	}

	s.mu.Lock()
	_, err = sdk.UploadFile(s.bucket, key, r, fo)
	s.mu.Unlock()
	if err != nil {
		err = supabase.FromStorage(err)
		if isDuplicate(err) {
			return ObjectInfo{}, fmt.Errorf("%s: %w", key, ErrObjectExists)
		}
		return ObjectInfo{}, err
	}

	return ObjectInfo{
		Key:          key,
		Size:         opt.Size,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

// Delete removes an object by key.
func (s *supabaseStorage) Delete(ctx context.Context, key string) error {
	sdk, err := s.sdk(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = sdk.RemoveFile(s.bucket, []string{key})
	return supabase.FromStorage(err)
}

// PublicURL returns <url>/storage/v1/object/public/<bucket>/<key>.
func (s *supabaseStorage) PublicURL(key string) string {
	sdk, err := s.client.Storage()
	if err != nil {
		return ""
	}
	return sdk.GetPublicUrl(s.bucket, key).SignedURL
}

// PresignGet asks the storage API for a signed download URL valid for expiry.
func (s *supabaseStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	sdk, err := s.sdk(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	resp, err := sdk.CreateSignedUrl(s.bucket, key, int(expiry/time.Second))
	s.mu.Unlock()
	if err != nil {
		return "", supabase.FromStorage(err)
	}
	if resp.SignedURL == "" || strings.HasSuffix(resp.SignedURL, "/storage/v1") {
		return "", fmt.Errorf("sign %s: empty signed URL", key)
	}
	return resp.SignedURL, nil
}

func isDuplicate(err error) bool {
	return supabase.IsStatus(err, http.StatusConflict) || supabase.HasCode(err, "Duplicate")
}
