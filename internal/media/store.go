package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store uploads media objects and returns their public URLs.
type Store interface {
	UploadImage(ctx context.Context, publicID string, r io.Reader, contentType string) (string, error)
	UploadAudio(ctx context.Context, publicID string, r io.Reader, contentType string) (string, error)
	// Delete removes the object behind url. URLs the store does not own
	// are ignored.
	Delete(ctx context.Context, url string) error
}

const (
	imageFolder = "images"
	audioFolder = "audio"
)

var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"audio/mpeg":    ".mp3",
	"audio/mp3":     ".mp3",
	"audio/wav":     ".wav",
	"audio/x-wav":   ".wav",
	"audio/ogg":     ".ogg",
	"audio/webm":    ".webm",
	"audio/mp4":     ".m4a",
}

// objectKey names the object for publicID inside folder.
func objectKey(folder, publicID, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return path.Join(folder, publicID+extensions[ct])
}

// keyFromURL strips base from url. ok is false for foreign URLs.
func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := path.Clean(strings.TrimPrefix(url, prefix))
	if key == "." || strings.HasPrefix(key, "..") || strings.HasPrefix(key, "/") {
		return "", false
	}
	return key, true
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// LocalStore keeps media on the local filesystem, for development and
// single-node deployments. Files are served by the HTTP layer under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) UploadImage(ctx context.Context, publicID string, r io.Reader, contentType string) (string, error) {
	return s.put(ctx, objectKey(imageFolder, publicID, contentType), r)
}

func (s *LocalStore) UploadAudio(ctx context.Context, publicID string, r io.Reader, contentType string) (string, error) {
	return s.put(ctx, objectKey(audioFolder, publicID, contentType), r)
}

func (s *LocalStore) put(ctx context.Context, key string, r io.Reader) (string, error) {
	dst := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	_, err = io.Copy(tmp, ctxReader{ctx: ctx, r: r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return s.BaseURL + "/" + key, nil
}

func (s *LocalStore) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(s.BaseURL, url)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
