// Package blob stores uploaded document content on the local filesystem.
// Files are addressed by an opaque storage reference generated at upload
// time; the original filename only contributes its extension.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docvault.org/internal/ids"
)

var (
	ErrNotFound   = errors.New("blob: not found")
	ErrInvalidRef = errors.New("blob: invalid storage ref")
)

// NewRef derives a fresh storage reference for an uploaded file. The
// reference is a generated id plus the sanitized lowercase extension of
// the original filename, so uploads never collide and user-controlled
// names never reach the filesystem.
func NewRef(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	var b strings.Builder
	for _, r := range ext {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return ids.New() + b.String()
}

// TextEditable reports whether a stored file may be edited in place.
// Only plain text files qualify; everything else is download-only.
func TextEditable(ref string) bool {
	return strings.HasSuffix(ref, ".txt")
}

// FS is a blob store rooted at a single directory.
type FS struct {
	dir string
}

// NewFS creates the root directory if needed and returns a store over it.
func NewFS(dir string) (*FS, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("blob dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FS{dir: dir}, nil
}

func (f *FS) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", ErrInvalidRef
	}
	return filepath.Join(f.dir, ref), nil
}

// Save streams r into the file named by ref, replacing any previous
// content, and returns the number of bytes written.
func (f *FS) Save(ref string, r io.Reader) (int64, error) {
	p, err := f.path(ref)
	if err != nil {
		return 0, err
	}
	dst, err := os.Create(p)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Open returns a reader over the stored file.
func (f *FS) Open(ref string) (io.ReadCloser, error) {
	p, err := f.path(ref)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

// WriteText overwrites the stored file with the given text.
func (f *FS) WriteText(ref, content string) error {
	_, err := f.Save(ref, strings.NewReader(content))
	return err
}

// ReadText returns the full stored file as a string.
func (f *FS) ReadText(ref string) (string, error) {
	rc, err := f.Open(ref)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Remove deletes the stored file. Removing a missing file is not an
// error; the caller may retry after a partial delete.
func (f *FS) Remove(ref string) error {
	p, err := f.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
