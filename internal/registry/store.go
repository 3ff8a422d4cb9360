package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"syllabus-rag/internal/objectstore"
)

const (
	DefaultKey         = "metadata.json"
	defaultMaxAttempts = 5
)

var ErrConflict = errors.New("registry: too many concurrent updates")

// Store mirrors the registry document between the bucket and a local file.
// Updates are read-modify-write cycles guarded by the object version, so two
// writers never silently drop each other's entries.
type Store struct {
	objects     objectstore.Store
	key         string
	localPath   string
	maxAttempts int
	logger      *slog.Logger
	mu          sync.Mutex
}

type Option func(*Store)

// WithKey sets the object key of the document.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLocalPath sets the local mirror file. An empty path disables mirroring.
func WithLocalPath(path string) Option {
	return func(s *Store) { s.localPath = path }
}

// WithMaxAttempts bounds the retries on version conflicts.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func NewStore(objects objectstore.Store, opts ...Option) *Store {
	s := &Store{
		objects:     objects,
		key:         DefaultKey,
		localPath:   DefaultKey,
		maxAttempts: defaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Fetch downloads the document, refreshes the local mirror and returns it.
// A missing document is an empty registry.
func (s *Store) Fetch(ctx context.Context) (*Registry, error) {
	reg, _, data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := s.writeLocal(data); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadLocal reads the local mirror; a missing file is an empty registry.
func (s *Store) LoadLocal() (*Registry, error) {
	if s.localPath == "" {
		return New(), nil
	}
	data, err := os.ReadFile(s.localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read local registry: %w", err)
	}
	return Parse(data)
}

// Update applies mutate to the latest document and writes it back if mutate
// reports a change. On a version conflict the cycle restarts from a fresh
// read.
func (s *Store) Update(ctx context.Context, mutate func(*Registry) bool) (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		reg, version, current, err := s.read(ctx)
		if err != nil {
			return nil, err
		}
		if !mutate(reg) && version != "" {
			if err := s.writeLocal(current); err != nil {
				return nil, err
			}
			return reg, nil
		}

		data, err := reg.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode registry: %w", err)
		}
		cond := objectstore.Condition{IfMatch: version}
		if version == "" {
			cond = objectstore.Condition{IfAbsent: true}
		}
		_, err = s.objects.Put(ctx, s.key, bytes.NewReader(data), cond)
		if errors.Is(err, objectstore.ErrPreconditionFailed) {
			s.logger.Warn("registry changed concurrently, retrying", "attempt", attempt, "key", s.key)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("upload registry: %w", err)
		}
		if err := s.writeLocal(data); err != nil {
			return nil, err
		}
		s.logger.Info("registry updated", "key", s.key, "pairs", reg.Len())
		return reg, nil
	}
	return nil, ErrConflict
}

// Add registers (branch, year) and returns the updated registry.
func (s *Store) Add(ctx context.Context, branch, year string) (*Registry, error) {
	return s.Update(ctx, func(r *Registry) bool { return r.Add(branch, year) })
}

func (s *Store) read(ctx context.Context) (*Registry, string, []byte, error) {
	rc, obj, err := s.objects.Get(ctx, s.key)
	if errors.Is(err, objectstore.ErrNotFound) {
		return New(), "", nil, nil
	}
	if err != nil {
		return nil, "", nil, fmt.Errorf("download registry: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", nil, fmt.Errorf("download registry: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, "", nil, err
	}
	return reg, obj.Version, data, nil
}

func (s *Store) writeLocal(data []byte) error {
	if s.localPath == "" {
		return nil
	}
	dir := filepath.Dir(s.localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write local registry: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".registry-*")
	if err != nil {
		return fmt.Errorf("write local registry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write local registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write local registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.localPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write local registry: %w", err)
	}
	return nil
}
