package service

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"syllabus-rag/internal/chunker"
	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/objectstore"
	objmemory "syllabus-rag/internal/objectstore/memory"
	"syllabus-rag/internal/registry"
	"syllabus-rag/internal/summarizer"
)

const embedDim = 128

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// plainExtractor treats the input bytes as the document text.
type plainExtractor struct{}

func (plainExtractor) Extract(r io.ReaderAt, size int64) (string, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	return string(data), err
}

// hashEmbedder maps each word to a bucket, so texts sharing words score high.
type hashEmbedder struct {
	name  string
	model string
	batch int

	mu    sync.Mutex
	calls []int
	err   error
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{name: "fake", model: "hash-v1", batch: 100}
}

func (e *hashEmbedder) Name() string      { return e.name }
func (e *hashEmbedder) Model() string     { return e.model }
func (e *hashEmbedder) MaxBatchSize() int { return e.batch }

func (e *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, len(texts))
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return hashVector(text), nil
}

func hashVector(text string) []float32 {
	v := make([]float32, embedDim+1)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!:;")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%embedDim]++
	}
	v[embedDim] = 0.01
	return v
}

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return m.GenerateFunc(ctx, prompt)
}

// failingPutStore rejects every upload.
type failingPutStore struct {
	objectstore.Store
}

func (failingPutStore) Put(context.Context, string, io.ReadSeeker, objectstore.Condition) (string, error) {
	return "", errors.New("bucket unavailable")
}

type fixture struct {
	objects  *objmemory.Store
	registry *registry.Store
	embedder *hashEmbedder
	scratch  string
	cache    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	objects := objmemory.New()
	return &fixture{
		objects: objects,
		registry: registry.NewStore(objects,
			registry.WithLocalPath(filepath.Join(t.TempDir(), "metadata.json")),
			registry.WithLogger(testLogger()),
		),
		embedder: newHashEmbedder(),
		scratch:  t.TempDir(),
		cache:    t.TempDir(),
	}
}

func (f *fixture) ingester(objects objectstore.Store, opts ...IngestOption) *Ingester {
	opts = append([]IngestOption{
		WithIngestLogger(testLogger()),
		WithScratchDir(f.scratch),
	}, opts...)
	return NewIngester(
		plainExtractor{},
		chunker.NewRecursiveChunker(120, 0),
		f.embedder,
		summarizer.NewFrequencySummarizer(),
		objects,
		f.registry,
		opts...,
	)
}

func (f *fixture) answerer(gen domain.Generator, opts ...AnswerOption) *Answerer {
	opts = append([]AnswerOption{
		WithAnswerLogger(testLogger()),
		WithCacheDir(f.cache),
	}, opts...)
	return NewAnswerer(f.objects, f.embedder, gen, opts...)
}

func ingestText(t *testing.T, ing *Ingester, target domain.Target, text string) *IngestResult {
	t.Helper()
	res, err := ing.Ingest(context.Background(), strings.NewReader(text), int64(len(text)), "syllabus.pdf", target)
	require.NoError(t, err)
	return res
}

const syllabusText = "Unit one covers operating systems, process scheduling and memory management.\n\n" +
	"Unit two covers computer networks, routing protocols and congestion control.\n\n" +
	"Unit three covers database systems, normalization and transaction processing.\n\n" +
	"Unit four covers compiler design, lexical analysis and code generation."
