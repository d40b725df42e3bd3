package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"clipboard-backend/internal/shared/storage/blob"
)

// Store implements blob.Store using the local filesystem. Upload timestamps
// come from file modification times, so they survive process restarts the
// same way a remote listing would.
type Store struct {
	baseDir string
}

// New creates a local blob store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Put writes the reader to disk at the given path.
func (s *Store) Put(ctx context.Context, p string, contentType string, r io.Reader) (blob.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return blob.ObjectInfo{}, err
	}

	clean, err := s.cleanPath(p)
	if err != nil {
		return blob.ObjectInfo{}, err
	}

	fullPath := filepath.Join(s.baseDir, clean)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return blob.ObjectInfo{}, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return blob.ObjectInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return blob.ObjectInfo{}, fmt.Errorf("write body: %w", err)
	}
	_ = contentType

	info, err := os.Stat(fullPath)
	if err != nil {
		return blob.ObjectInfo{}, fmt.Errorf("stat: %w", err)
	}

	return blob.ObjectInfo{
		Path:       filepath.ToSlash(clean),
		URL:        "/files/" + filepath.ToSlash(clean),
		Size:       written,
		UploadedAt: info.ModTime().UTC(),
	}, nil
}

// Get opens a stored blob for reading.
func (s *Store) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := s.cleanPath(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, clean))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes a stored blob.
func (s *Store) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clean, err := s.cleanPath(p)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.baseDir, clean)); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// List walks the tree under prefix and reports every blob found. An empty
// prefix lists the whole store. A missing prefix directory is an empty
// listing, not an error.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := s.baseDir
	cleanPrefix := strings.Trim(filepath.ToSlash(filepath.Clean(prefix)), "/")
	if cleanPrefix == "." {
		cleanPrefix = ""
	}
	if strings.HasPrefix(cleanPrefix, "..") {
		return nil, fmt.Errorf("invalid prefix")
	}
	if cleanPrefix != "" {
		root = filepath.Join(s.baseDir, filepath.FromSlash(cleanPrefix))
	}

	out := []blob.ObjectInfo{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		relSlash := filepath.ToSlash(rel)
		out = append(out, blob.ObjectInfo{
			Path:       relSlash,
			URL:        "/files/" + relSlash,
			Size:       info.Size(),
			UploadedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []blob.ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("walk: %w", err)
	}
	return out, nil
}

func (s *Store) cleanPath(p string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob path")
	}
	return clean, nil
}

var _ blob.Store = (*Store)(nil)
