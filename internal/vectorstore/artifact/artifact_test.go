package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/vectorstore/memory"
)

func buildStore(t *testing.T) *memory.Storage {
	t.Helper()
	s := memory.NewStorage()
	require.NoError(t, s.Init(3))
	require.NoError(t, s.Upsert(
		[]domain.Chunk{{Index: 0, Text: "UNIT I: Sets"}, {Index: 1, Text: "UNIT II: Graphs"}},
		[][]float32{{1, 0, 0}, {0, 1, 0.5}},
	))
	return s
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	created := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

	err := Write(ctx, dir, buildStore(t), Manifest{
		BuildID:   "b-1",
		Branch:    "CSE",
		Year:      "2023-24",
		Embedder:  EmbedderInfo{Provider: "gemini", Model: "text-embedding-004"},
		ChunkSize: 10000, ChunkOverlap: 1000,
		Summary:   "Discrete maths.",
		CreatedAt: created,
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, IndexFile))
	assert.FileExists(t, filepath.Join(dir, ManifestFile))

	store, m, err := Load(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ChunkCount)
	assert.Equal(t, 3, m.Dimension)
	assert.Equal(t, "CSE", m.Branch)
	assert.True(t, created.Equal(m.CreatedAt))
	assert.Equal(t, 2, store.Len())

	res, err := store.Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "UNIT II: Graphs", res[0].Chunk.Text)
}

func TestWrite_Overwrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Write(ctx, dir, buildStore(t), Manifest{Branch: "CSE"}))

	small := memory.NewStorage()
	require.NoError(t, small.Init(3))
	require.NoError(t, small.Upsert([]domain.Chunk{{Index: 0, Text: "only"}}, [][]float32{{1, 1, 1}}))
	require.NoError(t, Write(ctx, dir, small, Manifest{Branch: "CSE"}))

	store, m, err := Load(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ChunkCount)
	assert.Equal(t, 1, store.Len())
}

func TestLoad_MissingFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, _, err := Load(ctx, dir)
	assert.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("chunk_count: 1\ndimension: 3\n"), 0o644))
	_, _, err = Load(ctx, dir)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestEmbeddingEncoding(t *testing.T) {
	vec := []float32{0.25, -1.5, 3}
	out, err := DecodeEmbedding(EncodeEmbedding(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, out)

	_, err = DecodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}
