package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidName is returned for names that would escape the media directory
var ErrInvalidName = errors.New("invalid media file name")

// Storage keeps uploaded media files in a single flat directory
type Storage struct {
	dir string
}

// NewStorage creates the media directory if needed
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the media directory
func (s *Storage) Dir() string {
	return s.dir
}

// NewName returns a fresh sortable file name with the given extension
func NewName(ext string) string {
	return ulid.Make().String() + strings.ToLower(ext)
}

// ThumbnailName derives the thumbnail file name for a media file
func ThumbnailName(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "_thumb" + strings.ToLower(ext)
}

func (s *Storage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Save writes r to name. The file must not exist yet; a failed copy leaves nothing behind.
func (s *Storage) Save(name string, r io.Reader) (int64, error) {
	path, err := s.path(name)
	if err != nil {
		return 0, err
	}

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create media file: %w", err)
	}

	size, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("failed to write media file: %w", err)
	}

	return size, nil
}

// Open opens a stored file for reading
func (s *Storage) Open(name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Storage) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}

// List returns the names of all regular files in the media directory
func (s *Storage) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
