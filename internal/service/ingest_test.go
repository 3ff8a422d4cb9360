package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/objectstore"
	"syllabus-rag/internal/vectorstore/artifact"
)

var cse2324 = domain.Target{Branch: "CSE", Year: "2023-24"}

func readManifest(t *testing.T, f *fixture, target domain.Target) *artifact.Manifest {
	t.Helper()
	dir := t.TempDir()
	_, err := objectstore.DownloadTree(context.Background(), f.objects, "faiss_index/"+target.Name(), dir)
	require.NoError(t, err)
	m, err := artifact.ReadManifest(dir)
	require.NoError(t, err)
	return m
}

func TestIngest_UploadsArtifactAndRegistersTarget(t *testing.T) {
	f := newFixture(t)
	res := ingestText(t, f.ingester(f.objects), cse2324, syllabusText)

	assert.Equal(t, "faiss_index/CSE_2023-24", res.Prefix)
	assert.ElementsMatch(t, []string{
		"faiss_index/CSE_2023-24/index.db",
		"faiss_index/CSE_2023-24/manifest.yaml",
	}, res.Keys)
	assert.Greater(t, res.Chunks, 1)
	assert.NotEmpty(t, res.Summary)
	assert.NotEmpty(t, res.BuildID)

	m := readManifest(t, f, cse2324)
	assert.Equal(t, res.Chunks, m.ChunkCount)
	assert.Equal(t, "CSE", m.Branch)
	assert.Equal(t, "2023-24", m.Year)
	assert.Equal(t, "syllabus.pdf", m.Source)
	assert.Equal(t, artifact.EmbedderInfo{Provider: "fake", Model: "hash-v1"}, m.Embedder)
	assert.Equal(t, 120, m.ChunkSize)
	assert.Equal(t, 0, m.ChunkOverlap)
	assert.Equal(t, embedDim+1, m.Dimension)

	reg, err := f.registry.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-24"}, reg.Years("CSE"))
}

func TestIngest_SameTargetTwiceKeepsOneEntryAndLatestArtifact(t *testing.T) {
	f := newFixture(t)
	ing := f.ingester(f.objects)

	first := ingestText(t, ing, cse2324, "Unit one covers operating systems.")
	second := ingestText(t, ing, cse2324, syllabusText)
	require.NotEqual(t, first.Chunks, second.Chunks)

	reg, err := f.registry.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE"}, reg.Branches())
	assert.Equal(t, []string{"2023-24"}, reg.Years("CSE"))

	m := readManifest(t, f, cse2324)
	assert.Equal(t, second.Chunks, m.ChunkCount)
	assert.Equal(t, second.BuildID, m.BuildID)
}

func TestIngest_EmptyDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.ingester(f.objects).Ingest(context.Background(), strings.NewReader(" \n\t "), 4, "blank.pdf", cse2324)

	require.ErrorIs(t, err, ErrEmptyDocument)
	assert.Empty(t, f.embedder.calls)
	objs, err := f.objects.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestIngest_InvalidTarget(t *testing.T) {
	f := newFixture(t)
	_, err := f.ingester(f.objects).Ingest(context.Background(), strings.NewReader(syllabusText), int64(len(syllabusText)), "s.pdf", domain.Target{Branch: "CSE"})
	assert.Error(t, err)
}

func TestIngest_BatchesEmbeddingRequests(t *testing.T) {
	f := newFixture(t)
	f.embedder.batch = 2
	res := ingestText(t, f.ingester(f.objects), cse2324, syllabusText)

	total := 0
	for _, n := range f.embedder.calls {
		assert.LessOrEqual(t, n, 2)
		total += n
	}
	assert.Equal(t, res.Chunks, total)
}

func TestIngest_ConfiguredBatchSizeBelowProviderLimit(t *testing.T) {
	f := newFixture(t)
	res := ingestText(t, f.ingester(f.objects, WithBatchSize(3)), cse2324, strings.Repeat(syllabusText+"\n\n", 2))

	require.Greater(t, res.Chunks, 3)
	for _, n := range f.embedder.calls {
		assert.LessOrEqual(t, n, 3)
	}
}

func TestIngest_RateLimitedStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.embedder.batch = 1
	res := ingestText(t, f.ingester(f.objects, WithRateLimit(1000)), cse2324, syllabusText)
	assert.Len(t, f.embedder.calls, res.Chunks)
}

func TestIngest_EmbedderErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = assert.AnError
	_, err := f.ingester(f.objects).Ingest(context.Background(), strings.NewReader(syllabusText), int64(len(syllabusText)), "s.pdf", cse2324)

	require.ErrorIs(t, err, assert.AnError)
	reg, err := f.registry.Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, reg.Has("CSE", "2023-24"))
}

func TestIngest_RemovesScratchDirOnEveryPath(t *testing.T) {
	f := newFixture(t)

	_, err := f.ingester(failingPutStore{Store: f.objects}).Ingest(context.Background(), strings.NewReader(syllabusText), int64(len(syllabusText)), "s.pdf", cse2324)
	require.Error(t, err)
	assertEmptyDir(t, f.scratch)

	ingestText(t, f.ingester(f.objects), cse2324, syllabusText)
	assertEmptyDir(t, f.scratch)
}

func TestIngestFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "cse-2023-24.pdf")
	require.NoError(t, os.WriteFile(path, []byte(syllabusText), 0o644))

	res, err := f.ingester(f.objects).IngestFile(context.Background(), path, cse2324)
	require.NoError(t, err)
	assert.Equal(t, "cse-2023-24.pdf", readManifest(t, f, cse2324).Source)
	assert.Positive(t, res.Chunks)

	_, err = f.ingester(f.objects).IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), cse2324)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
