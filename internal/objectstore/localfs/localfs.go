// Package localfs stores objects as files under a root directory. Keys map
// to slash-separated relative paths.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"syllabus-rag/internal/objectstore"
)

// Store is a directory-backed object store. Conditional writes are checked
// under an in-process mutex only.
type Store struct {
	root string
	mu   sync.Mutex
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) pathFor(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("localfs: invalid key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), nil
}

func version(info fs.FileInfo) string {
	return strconv.FormatInt(info.ModTime().UnixNano(), 36) + "-" + strconv.FormatInt(info.Size(), 36)
}

func (s *Store) Put(_ context.Context, key string, body io.ReadSeeker, cond objectstore.Condition) (string, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, statErr := os.Stat(p)
	exists := statErr == nil
	if cond.IfAbsent && exists {
		return "", objectstore.ErrPreconditionFailed
	}
	if cond.IfMatch != "" && (!exists || version(info) != cond.IfMatch) {
		return "", objectstore.ErrPreconditionFailed
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	info, err = os.Stat(p)
	if err != nil {
		return "", err
	}
	return version(info), nil
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, objectstore.Object, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, objectstore.Object{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, objectstore.Object{}, objectstore.ErrNotFound
		}
		return nil, objectstore.Object{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, objectstore.Object{}, err
	}
	return f, objectstore.Object{Key: key, Size: info.Size(), Version: version(info)}, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]objectstore.Object, error) {
	var out []objectstore.Object
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Dot files are in-flight temporaries of Put and DownloadFile.
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, objectstore.Object{Key: key, Size: info.Size(), Version: version(info)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

var _ objectstore.Store = (*Store)(nil)
