// Package media stores flashcard images and audio and manages the temporary
// files that multipart uploads are spooled to.
package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Upload is a client file spooled to local disk for the duration of one
// request.
type Upload struct {
	// Path is the spooled file on disk.
	Path string
	// Filename is the name the client sent.
	Filename    string
	ContentType string
	Size        int64
}

// Spool copies r into a uniquely named file under dir.
func Spool(dir string, r io.Reader, filename, contentType string) (*Upload, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate upload name: %w", err)
	}
	path := filepath.Join(dir, name+filepath.Ext(filename))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &Upload{Path: path, Filename: filename, ContentType: contentType, Size: n}, nil
}

// Open opens the spooled file for reading.
func (u *Upload) Open() (*os.File, error) {
	return os.Open(u.Path)
}

// Remove deletes the spooled file. It is safe to call on a nil Upload and
// more than once.
func (u *Upload) Remove() error {
	if u == nil || u.Path == "" {
		return nil
	}
	if err := os.Remove(u.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
