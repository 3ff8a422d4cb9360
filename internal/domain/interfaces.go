package domain

import (
	"context"
	"fmt"
	"strings"
)

// Document is the extracted text of one uploaded syllabus.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a bounded, overlapping slice of a document's text.
// Chunks carry no identity beyond their position.
type Chunk struct {
	Index int
	Text  string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Target names one ingested syllabus: a branch and an academic year.
type Target struct {
	Branch string
	Year   string
}

// Validate reports whether both labels are present.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Branch) == "" {
		return fmt.Errorf("branch is required")
	}
	if strings.TrimSpace(t.Year) == "" {
		return fmt.Errorf("year is required")
	}
	return nil
}

// Name returns the artifact name "{branch}_{year}".
func (t Target) Name() string { return t.Branch + "_" + t.Year }

func (t Target) String() string { return t.Branch + " - " + t.Year }

// Embedder converts text into vectors through a hosted embedding model.
// Documents and queries are embedded separately because some providers
// tune the vector for the retrieval side it is used on.
type Embedder interface {
	Name() string
	Model() string
	MaxBatchSize() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
