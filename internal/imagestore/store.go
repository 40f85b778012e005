package imagestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store writes uploaded product images into a single directory under
// random names. Paths handed out are absolute.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve image dir %s", dir)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute image directory
func (s *Store) Dir() string {
	return s.dir
}

// makeFileName keeps the original extension and replaces the name with a uuid
func makeFileName(original string) string {
	ext := filepath.Ext(filepath.Base(original))
	return uuid.NewString() + ext
}

// Save copies r into a new file named after a fresh uuid plus the extension
// of originalName, and returns the absolute path of the file.
func (s *Store) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create image dir %s", s.dir)
	}

	path := filepath.Join(s.dir, makeFileName(originalName))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", errors.Wrap(err, "write image file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "close image file")
	}
	return path, nil
}

// Delete removes the image file. A missing file is not an error.
func (s *Store) Delete(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete image %s", path)
	}
	return nil
}

// Sweep removes files from the image directory that are not in referenced
// and were last modified more than minAge ago. Younger files may belong to
// a write that has not been persisted yet. It returns the number of
// removed files.
func (s *Store) Sweep(ctx context.Context, referenced map[string]struct{}, minAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read image dir %s", s.dir)
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if _, ok := referenced[path]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := s.Delete(path); err != nil {
			zap.L().Warn("failed to remove orphan image", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
