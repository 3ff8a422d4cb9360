package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/objectstore"
	"syllabus-rag/internal/vectorstore/artifact"
	"syllabus-rag/internal/vectorstore/memory"
)

// Answer is the model's reply plus the chunks it was given.
type Answer struct {
	Text    string
	Sources []domain.SearchResult
	Summary string
	BuildID string
}

// Answerer downloads the artifact of a target and answers questions from it.
type Answerer struct {
	objects   objectstore.Store
	embedder  domain.Embedder
	generator domain.Generator

	indexFolder string
	cacheDir    string
	topK        int
	logger      *slog.Logger
}

// AnswerOption configures an Answerer.
type AnswerOption func(*Answerer)

// WithAnswerLogger sets the logger used for retrieval steps.
func WithAnswerLogger(logger *slog.Logger) AnswerOption {
	return func(a *Answerer) { a.logger = logger }
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) AnswerOption {
	return func(a *Answerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithCacheDir sets the local root the artifacts are downloaded under.
func WithCacheDir(dir string) AnswerOption {
	return func(a *Answerer) { a.cacheDir = dir }
}

// WithAnswerIndexFolder sets the storage folder artifacts are read from.
func WithAnswerIndexFolder(folder string) AnswerOption {
	return func(a *Answerer) { a.indexFolder = folder }
}

// NewAnswerer reads artifacts from objects, downloading them under the
// current directory and retrieving memory.DefaultTopK chunks unless
// configured otherwise.
func NewAnswerer(objects objectstore.Store, embedder domain.Embedder, generator domain.Generator, opts ...AnswerOption) *Answerer {
	a := &Answerer{
		objects:     objects,
		embedder:    embedder,
		generator:   generator,
		indexFolder: DefaultIndexFolder,
		cacheDir:    ".",
		topK:        memory.DefaultTopK,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Ask answers question from the artifact of target. The artifact is
// downloaded on every call so a re-ingested syllabus is picked up at once.
func (a *Answerer) Ask(ctx context.Context, target domain.Target, question string) (*Answer, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	log := a.logger.With("branch", target.Branch, "year", target.Year)

	prefix := path.Join(a.indexFolder, target.Name())
	local := filepath.Join(a.cacheDir, filepath.FromSlash(prefix))
	keys, err := objectstore.DownloadTree(ctx, a.objects, prefix, local)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, target)
		}
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	log.Debug("artifact downloaded", "objects", len(keys), "dir", local)

	store, m, err := artifact.Load(ctx, local)
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	if m.Embedder.Provider != a.embedder.Name() || m.Embedder.Model != a.embedder.Model() {
		return nil, fmt.Errorf("%w: index uses %s/%s, configured %s/%s", ErrEmbedderMismatch,
			m.Embedder.Provider, m.Embedder.Model, a.embedder.Name(), a.embedder.Model())
	}

	qv, err := a.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := store.Search(qv, a.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	log.Info("chunks retrieved", "results", len(results), "top_k", a.topK)

	text, err := a.generator.Generate(ctx, BuildPrompt(question, results))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Answer{
		Text:    strings.TrimSpace(text),
		Sources: results,
		Summary: m.Summary,
		BuildID: m.BuildID,
	}, nil
}
