// Package storage implements the byte-stream sink for uploaded media
// files. Files are keyed by filename only; metadata lives in the media
// table.
package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is returned when a download references a filename that
// was never stored (or was removed out of band).
var ErrFileNotFound = errors.New("file not found")

// FileStore writes and reads media files under a single base directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed and returns a store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// clean strips any path components from a client-supplied filename so a
// name like "../../etc/passwd" cannot escape the base directory.
func (s *FileStore) clean(filename string) string {
	return filepath.Base(strings.TrimSpace(filename))
}

// Save streams r into the store under filename, replacing any previous
// content, and returns the number of bytes written.
func (s *FileStore) Save(filename string, r io.Reader) (int64, error) {
	f, err := os.Create(filepath.Join(s.dir, s.clean(filename)))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Open returns a reader over a stored file. The caller must close it.
func (s *FileStore) Open(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, s.clean(filename)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes a stored file. A missing file is not an error: the row
// delete it accompanies should succeed regardless.
func (s *FileStore) Remove(filename string) error {
	err := os.Remove(filepath.Join(s.dir, s.clean(filename)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
