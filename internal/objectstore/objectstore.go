// Package objectstore defines the flat key/value bucket the pipelines share
// and helpers for moving whole files and directory trees in and out of it.
package objectstore

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

var (
	ErrNotFound           = errors.New("object not found")
	ErrPreconditionFailed = errors.New("object version precondition failed")
)

// Object describes a stored object.
type Object struct {
	Key     string
	Size    int64
	Version string
}

// Condition guards a write. The zero value writes unconditionally.
type Condition struct {
	// IfMatch requires the current object version to equal this value.
	IfMatch string
	// IfAbsent requires that no object exists under the key.
	IfAbsent bool
}

// Store is a bucket with a flat key namespace.
type Store interface {
	// Put writes body under key and returns the new version.
	Put(ctx context.Context, key string, body io.ReadSeeker, cond Condition) (string, error)
	// Get opens the object; the caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
}

// UploadFile copies a local file to key.
func UploadFile(ctx context.Context, s Store, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := s.Put(ctx, key, f, Condition{}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// DownloadFile copies key to a local file, creating parent directories.
// The file is written next to localPath and renamed into place, so
// localPath may be the file the store itself reads from.
func DownloadFile(ctx context.Context, s Store, key, localPath string) error {
	rc, _, err := s.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	defer rc.Close()
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

// UploadTree uploads every regular file under dir to prefix/<relative path>
// and returns the keys written, in walk order.
func UploadTree(ctx context.Context, s Store, dir, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))
		if err := UploadFile(ctx, s, p, key); err != nil {
			return err
		}
		keys = append(keys, key)
		return nil
	})
	return keys, err
}

// DownloadTree downloads every object under prefix/ into dir, keeping the
// path relative to prefix. It returns ErrNotFound when nothing is stored
// under the prefix.
func DownloadTree(ctx context.Context, s Store, prefix, dir string) ([]string, error) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	objs, err := s.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("%w: nothing under %s", ErrNotFound, prefix)
	}
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		rel := strings.TrimPrefix(o.Key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		local := filepath.Join(dir, filepath.FromSlash(rel))
		if !strings.HasPrefix(local, filepath.Clean(dir)+string(filepath.Separator)) {
			return nil, fmt.Errorf("object key %q escapes %s", o.Key, dir)
		}
		if err := DownloadFile(ctx, s, o.Key, local); err != nil {
			return nil, err
		}
		keys = append(keys, o.Key)
	}
	return keys, nil
}
