package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syllabus-rag/internal/domain"
)

func seeded(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage()
	require.NoError(t, s.Init(2))
	chunks := []domain.Chunk{
		{Index: 0, Text: "east"},
		{Index: 1, Text: "north"},
		{Index: 2, Text: "north-east"},
		{Index: 3, Text: "west"},
		{Index: 4, Text: "south"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}, {-1, 0}, {0, -2}}
	require.NoError(t, s.Upsert(chunks, vectors))
	return s
}

func TestStorage_SearchRanksByCosine(t *testing.T) {
	s := seeded(t)

	res, err := s.Search([]float32{2, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "east", res[0].Chunk.Text)
	assert.Equal(t, "north-east", res[1].Chunk.Text)
	assert.Greater(t, res[0].Score, res[1].Score)
}

func TestStorage_SearchDefaultsTopK(t *testing.T) {
	res, err := seeded(t).Search([]float32{1, 1}, 0)
	require.NoError(t, err)
	assert.Len(t, res, DefaultTopK)
}

func TestStorage_RejectsMismatchedDimensions(t *testing.T) {
	s := seeded(t)
	_, err := s.Search([]float32{1, 0, 0}, 1)
	require.Error(t, err)

	err = s.Upsert([]domain.Chunk{{Text: "x"}}, [][]float32{{1}})
	require.Error(t, err)

	err = s.Upsert([]domain.Chunk{{Text: "x"}}, nil)
	require.Error(t, err)
}

func TestStorage_ZeroQuery(t *testing.T) {
	_, err := seeded(t).Search([]float32{0, 0}, 1)
	require.Error(t, err)
}

func TestStorage_EntriesAndClear(t *testing.T) {
	s := seeded(t)
	chunks, vectors := s.Entries()
	assert.Len(t, chunks, 5)
	assert.Len(t, vectors, 5)
	assert.Equal(t, 2, s.Dimension())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())
	res, err := s.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestStorage_InitRejectsZeroDimension(t *testing.T) {
	assert.Error(t, NewStorage().Init(0))
}
