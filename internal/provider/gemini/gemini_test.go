package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	EmbedContentFunc    func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (f *fakeModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return f.EmbedContentFunc(ctx, model, contents, config)
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f.GenerateContentFunc(ctx, model, contents, config)
}

func TestEmbedder_EmbedDocuments(t *testing.T) {
	fake := &fakeModels{
		EmbedContentFunc: func(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			assert.Equal(t, DefaultEmbeddingModel, model)
			assert.Equal(t, taskDocument, config.TaskType)
			out := &genai.EmbedContentResponse{}
			for i := range contents {
				out.Embeddings = append(out.Embeddings, &genai.ContentEmbedding{Values: []float32{float32(i), 1}})
			}
			return out, nil
		},
	}
	e := newEmbedder(fake, "")

	vecs, err := e.EmbedDocuments(context.Background(), []string{"unit one", "unit two"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, vecs)
	assert.Equal(t, "gemini", e.Name())
	assert.Equal(t, 100, e.MaxBatchSize())
}

func TestEmbedder_EmbedQueryUsesQueryTask(t *testing.T) {
	fake := &fakeModels{
		EmbedContentFunc: func(_ context.Context, _ string, _ []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			assert.Equal(t, taskQuery, config.TaskType)
			return &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.5}}}}, nil
		},
	}
	vec, err := newEmbedder(fake, "custom").EmbedQuery(context.Background(), "what is unit 3?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vec)
}

func TestEmbedder_RejectsShortResponse(t *testing.T) {
	fake := &fakeModels{
		EmbedContentFunc: func(context.Context, string, []*genai.Content, *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			return &genai.EmbedContentResponse{}, nil
		},
	}
	_, err := newEmbedder(fake, "").EmbedDocuments(context.Background(), []string{"a"})
	require.Error(t, err)
}

func TestEmbedder_RejectsOversizedBatch(t *testing.T) {
	_, err := newEmbedder(&fakeModels{}, "").EmbedDocuments(context.Background(), make([]string, 101))
	require.Error(t, err)
}

func TestGenerator_Generate(t *testing.T) {
	fake := &fakeModels{
		GenerateContentFunc: func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, DefaultGenerationModel, model)
			require.NotNil(t, config.Temperature)
			assert.InDelta(t, 0.3, *config.Temperature, 1e-6)
			require.Len(t, contents, 1)
			assert.Equal(t, "prompt text", contents[0].Parts[0].Text)
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: genai.NewContentFromText("  Sorry not Available\n", genai.RoleModel),
				}},
			}, nil
		},
	}

	out, err := newGenerator(fake, "", DefaultTemperature).Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Sorry not Available", out)
}

func TestGenerator_PropagatesError(t *testing.T) {
	fake := &fakeModels{
		GenerateContentFunc: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	_, err := newGenerator(fake, "", 0).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}
