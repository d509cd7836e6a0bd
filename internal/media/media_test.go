package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpool_WritesAndRemoves(t *testing.T) {
	dir := t.TempDir()

	u, err := Spool(dir, strings.NewReader("png-bytes"), "cat.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", u.Filename)
	assert.Equal(t, "image/png", u.ContentType)
	assert.EqualValues(t, 9, u.Size)
	assert.Equal(t, ".png", filepath.Ext(u.Path))
	assert.Equal(t, dir, filepath.Dir(u.Path))

	f, err := u.Open()
	require.NoError(t, err)
	f.Close()

	require.NoError(t, u.Remove())
	_, err = os.Stat(u.Path)
	assert.True(t, os.IsNotExist(err))

	// second removal and nil receiver are no-ops
	assert.NoError(t, u.Remove())
	var none *Upload
	assert.NoError(t, none.Remove())
}

func TestSpool_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := Spool(dir, strings.NewReader("a"), "x.mp3", "audio/mpeg")
	require.NoError(t, err)
	b, err := Spool(dir, strings.NewReader("b"), "x.mp3", "audio/mpeg")
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "images/flashcard_1.jpg", objectKey(imageFolder, "flashcard_1", "image/jpeg"))
	assert.Equal(t, "audio/flashcard_audio_1.mp3", objectKey(audioFolder, "flashcard_audio_1", "audio/mpeg; charset=binary"))
	assert.Equal(t, "images/flashcard_2", objectKey(imageFolder, "flashcard_2", "application/octet-stream"))
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		url  string
		key  string
		owns bool
	}{
		{"/uploads/images/a.png", "images/a.png", true},
		{"https://cdn.example.com/images/a.png", "", false},
		{"/uploads/../secret.env", "", false},
		{"/uploads/", "", false},
	}
	for _, tt := range tests {
		key, ok := keyFromURL("/uploads", tt.url)
		assert.Equal(t, tt.owns, ok, tt.url)
		assert.Equal(t, tt.key, key, tt.url)
	}
}

func TestLocalStore_UploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/uploads/")
	ctx := context.Background()

	url, err := s.UploadImage(ctx, "flashcard_c1", strings.NewReader("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/images/flashcard_c1.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "images", "flashcard_c1.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	audioURL, err := s.UploadAudio(ctx, "flashcard_audio_c1", strings.NewReader("mp3"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/audio/flashcard_audio_c1.mp3", audioURL)

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "images", "flashcard_c1.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, url), "deleting twice")
	assert.NoError(t, s.Delete(ctx, "https://elsewhere.example.com/x.png"))
}

func TestLocalStore_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/uploads")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.UploadImage(ctx, "flashcard_c2", strings.NewReader("img"), "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(filepath.Join(dir, "images"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file must not be left behind")
}

func TestGCSStore_PublicURL(t *testing.T) {
	s := newGCSStore(nil, "hanzi-media", "")
	assert.Equal(t, "https://storage.googleapis.com/hanzi-media/images/a.png", s.publicURL("images/a.png"))

	key, ok := keyFromURL(s.publicBase, "https://storage.googleapis.com/hanzi-media/audio/b.mp3")
	assert.True(t, ok)
	assert.Equal(t, "audio/b.mp3", key)

	cdn := newGCSStore(nil, "hanzi-media", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/images/a.png", cdn.publicURL("images/a.png"))
	assert.NoError(t, cdn.Close())
}

func TestGCSStore_DeleteForeignURL(t *testing.T) {
	s := newGCSStore(nil, "hanzi-media", "")
	assert.NoError(t, s.Delete(context.Background(), "/uploads/images/a.png"))
}
