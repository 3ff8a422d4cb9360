package memory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/vectorstore"
)

const DefaultTopK = 4

// Storage is an in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	norms     []float64
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.norms = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), s.dimension)
		}
	}
	for i := range vectors {
		s.chunks = append(s.chunks, chunks[i])
		s.vectors = append(s.vectors, vectors[i])
		s.norms = append(s.norms, norm(vectors[i]))
	}
	return nil
}

// Search returns up to topK chunks ordered by cosine similarity.
func (s *Storage) Search(vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(s.vectors) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(vector), s.dimension)
	}
	qn := norm(vector)
	if qn == 0 {
		return nil, errors.New("query vector is zero")
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(s.vectors))
	for i := range s.vectors {
		if s.norms[i] == 0 {
			continue
		}
		scores = append(scores, scored{idx: i, score: dot(s.vectors[i], vector) / (s.norms[i] * qn)})
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.SearchResult, topK)
	for i := 0; i < topK; i++ {
		results[i] = domain.SearchResult{Chunk: s.chunks[scores[i].idx], Score: scores[i].score}
	}
	return results, nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.norms = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Len returns the number of stored chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Entries returns copies of the stored chunks and vectors in insertion order.
func (s *Storage) Entries() ([]domain.Chunk, [][]float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks...)
	vectors := append([][]float32(nil), s.vectors...)
	return chunks, vectors
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

var (
	_ vectorstore.Storage     = (*Storage)(nil)
	_ vectorstore.Snapshotter = (*Storage)(nil)
)
