// Package service holds the ingestion and question-answering pipelines.
package service

import (
	"context"
	"errors"
	"io"

	"syllabus-rag/internal/registry"
)

// DefaultIndexFolder is the storage folder holding one artifact per target.
const DefaultIndexFolder = "faiss_index"

var (
	ErrArtifactNotFound = errors.New("no index has been uploaded for this branch and year")
	ErrEmptyDocument    = errors.New("document contains no extractable text")
	ErrEmbedderMismatch = errors.New("index was built with a different embedder")
)

// TextExtractor returns the plain text of a document.
type TextExtractor interface {
	Extract(r io.ReaderAt, size int64) (string, error)
}

// RegistryUpdater records that a target has an artifact.
type RegistryUpdater interface {
	Add(ctx context.Context, branch, year string) (*registry.Registry, error)
}
