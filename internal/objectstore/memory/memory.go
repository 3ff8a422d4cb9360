// Package memory is an in-process object store, used by tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"syllabus-rag/internal/objectstore"
)

type entry struct {
	data    []byte
	version string
}

type Store struct {
	mu      sync.Mutex
	objects map[string]entry
	gen     int
}

func New() *Store {
	return &Store{objects: make(map[string]entry)}
}

func (s *Store) Put(_ context.Context, key string, body io.ReadSeeker, cond objectstore.Condition) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.objects[key]
	if cond.IfAbsent && exists {
		return "", objectstore.ErrPreconditionFailed
	}
	if cond.IfMatch != "" && (!exists || cur.version != cond.IfMatch) {
		return "", objectstore.ErrPreconditionFailed
	}
	s.gen++
	version := strconv.Itoa(s.gen)
	s.objects[key] = entry{data: data, version: version}
	return version, nil
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, objectstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.objects[key]
	if !ok {
		return nil, objectstore.Object{}, objectstore.ErrNotFound
	}
	obj := objectstore.Object{Key: key, Size: int64(len(e.data)), Version: e.version}
	return io.NopCloser(bytes.NewReader(e.data)), obj, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]objectstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []objectstore.Object
	for k, e := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, objectstore.Object{Key: k, Size: int64(len(e.data)), Version: e.version})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Bytes returns a copy of the object stored under key.
func (s *Store) Bytes(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.data...), true
}

// Delete removes key if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}

var _ objectstore.Store = (*Store)(nil)
