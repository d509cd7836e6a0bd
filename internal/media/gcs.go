package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps media in a Google Cloud Storage bucket.
type GCSStore struct {
	client     *storage.Client
	bucket     string
	publicBase string
}

// NewGCSStore connects to GCS. Credentials come from credentialsFile when
// set, otherwise from the environment's application default credentials.
// An empty publicBaseURL means https://storage.googleapis.com/<bucket>.
func NewGCSStore(ctx context.Context, bucket, publicBaseURL, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return newGCSStore(client, bucket, publicBaseURL), nil
}

func newGCSStore(client *storage.Client, bucket, publicBaseURL string) *GCSStore {
	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{client: client, bucket: bucket, publicBase: base}
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *GCSStore) UploadImage(ctx context.Context, publicID string, r io.Reader, contentType string) (string, error) {
	return s.put(ctx, objectKey(imageFolder, publicID, contentType), r, contentType)
}

func (s *GCSStore) UploadAudio(ctx context.Context, publicID string, r io.Reader, contentType string) (string, error) {
	return s.put(ctx, objectKey(audioFolder, publicID, contentType), r, contentType)
}

func (s *GCSStore) put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", key, err)
	}
	return s.publicURL(key), nil
}

func (s *GCSStore) publicURL(key string) string {
	return s.publicBase + "/" + key
}

func (s *GCSStore) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(s.publicBase, url)
	if !ok {
		return nil
	}
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
