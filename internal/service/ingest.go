package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/objectstore"
	"syllabus-rag/internal/vectorstore/artifact"
	"syllabus-rag/internal/vectorstore/memory"
)

// IngestResult describes one completed ingestion.
type IngestResult struct {
	Target   domain.Target
	Prefix   string
	Chunks   int
	Keys     []string
	Summary  string
	BuildID  string
	Duration time.Duration
}

// Ingester turns a syllabus PDF into an uploaded artifact and registers it.
type Ingester struct {
	extractor  TextExtractor
	chunker    domain.Chunker
	embedder   domain.Embedder
	summarizer domain.Summarizer
	objects    objectstore.Store
	registry   RegistryUpdater

	indexFolder      string
	batchSize        int
	summarySentences int
	scratchDir       string
	limiter          *rate.Limiter
	logger           *slog.Logger
	now              func() time.Time
}

// IngestOption configures an Ingester.
type IngestOption func(*Ingester)

// WithIngestLogger sets the logger used for pipeline steps.
func WithIngestLogger(logger *slog.Logger) IngestOption {
	return func(i *Ingester) { i.logger = logger }
}

// WithRateLimit caps embedding requests per second. Zero or less disables
// the limit.
func WithRateLimit(perSecond float64) IngestOption {
	return func(i *Ingester) {
		if perSecond <= 0 {
			i.limiter = nil
			return
		}
		i.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithBatchSize caps the number of chunks sent per embedding request below
// the provider's own limit.
func WithBatchSize(n int) IngestOption {
	return func(i *Ingester) { i.batchSize = n }
}

// WithIngestIndexFolder sets the storage folder artifacts are uploaded under.
func WithIngestIndexFolder(folder string) IngestOption {
	return func(i *Ingester) { i.indexFolder = folder }
}

// WithSummarySentences sets the length of the stored summary.
func WithSummarySentences(n int) IngestOption {
	return func(i *Ingester) { i.summarySentences = n }
}

// WithScratchDir sets the parent of the temporary build directory.
func WithScratchDir(dir string) IngestOption {
	return func(i *Ingester) { i.scratchDir = dir }
}

// NewIngester wires the pipeline stages. Artifacts go to DefaultIndexFolder
// unless WithIngestIndexFolder says otherwise.
func NewIngester(
	extractor TextExtractor,
	chunker domain.Chunker,
	embedder domain.Embedder,
	summarizer domain.Summarizer,
	objects objectstore.Store,
	registry RegistryUpdater,
	opts ...IngestOption,
) *Ingester {
	i := &Ingester{
		extractor:        extractor,
		chunker:          chunker,
		embedder:         embedder,
		summarizer:       summarizer,
		objects:          objects,
		registry:         registry,
		indexFolder:      DefaultIndexFolder,
		summarySentences: 3,
		logger:           slog.Default(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	return i
}

// IngestFile ingests the PDF at path for target.
func (i *Ingester) IngestFile(ctx context.Context, pdfPath string, target domain.Target) (*IngestResult, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", pdfPath, err)
	}
	return i.Ingest(ctx, f, info.Size(), filepath.Base(pdfPath), target)
}

// Ingest extracts, chunks and embeds the document, uploads the resulting
// artifact under {index folder}/{branch}_{year}/ and records the target in
// the registry. Re-ingesting a target replaces its artifact.
func (i *Ingester) Ingest(ctx context.Context, r io.ReaderAt, size int64, source string, target domain.Target) (*IngestResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	started := i.now()
	log := i.logger.With("branch", target.Branch, "year", target.Year)

	text, err := i.extractor.Extract(r, size)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	log.Info("text extracted", "source", source, "chars", len(text))

	chunks, err := i.chunker.Chunk(domain.Document{ID: target.Name(), Path: source, Content: text})
	if err != nil {
		return nil, fmt.Errorf("chunk text: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	vectors, err := i.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}
	log.Info("chunks embedded", "chunks", len(chunks), "model", i.embedder.Model())

	store := memory.NewStorage()
	if err := store.Init(len(vectors[0])); err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	summary, err := i.summarizer.Summarize(text, i.summarySentences)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	scratch, err := os.MkdirTemp(i.scratchDir, "syllabus-rag-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	m := artifact.Manifest{
		BuildID:   uuid.NewString(),
		Branch:    target.Branch,
		Year:      target.Year,
		Source:    source,
		Embedder:  artifact.EmbedderInfo{Provider: i.embedder.Name(), Model: i.embedder.Model()},
		Summary:   summary,
		CreatedAt: started.UTC(),
	}
	if sized, ok := i.chunker.(interface {
		Size() int
		Overlap() int
	}); ok {
		m.ChunkSize, m.ChunkOverlap = sized.Size(), sized.Overlap()
	}
	if err := artifact.Write(ctx, scratch, store, m); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	prefix := path.Join(i.indexFolder, target.Name())
	keys, err := objectstore.UploadTree(ctx, i.objects, scratch, prefix)
	if err != nil {
		return nil, fmt.Errorf("upload artifact: %w", err)
	}
	log.Info("artifact uploaded", "prefix", prefix, "objects", len(keys), "build_id", m.BuildID)

	if _, err := i.registry.Add(ctx, target.Branch, target.Year); err != nil {
		return nil, fmt.Errorf("update registry: %w", err)
	}

	return &IngestResult{
		Target:   target,
		Prefix:   prefix,
		Chunks:   len(chunks),
		Keys:     keys,
		Summary:  summary,
		BuildID:  m.BuildID,
		Duration: i.now().Sub(started),
	}, nil
}

func (i *Ingester) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	batch := i.embedder.MaxBatchSize()
	if i.batchSize > 0 && (batch <= 0 || i.batchSize < batch) {
		batch = i.batchSize
	}
	if batch <= 0 {
		batch = len(chunks)
	}
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Text)
		}
		if i.limiter != nil {
			if err := i.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("embed chunks: %w", err)
			}
		}
		out, err := i.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(out) != len(texts) {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end-1, len(out), len(texts))
		}
		vectors = append(vectors, out...)
	}
	return vectors, nil
}
