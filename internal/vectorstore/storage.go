package vectorstore

import "syllabus-rag/internal/domain"

// Storage holds vectors and supports similarity search.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []domain.Chunk, vectors [][]float32) error
	Search(vector []float32, topK int) ([]domain.SearchResult, error)
	Clear() error
}

// Snapshotter is implemented by stores whose contents can be written to an
// artifact.
type Snapshotter interface {
	Dimension() int
	Entries() ([]domain.Chunk, [][]float32)
}
