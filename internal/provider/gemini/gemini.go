// Package gemini adapts the Google Gen AI SDK to the embedder and generator
// ports.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"syllabus-rag/internal/domain"
)

const (
	DefaultEmbeddingModel  = "text-embedding-004"
	DefaultGenerationModel = "gemini-2.5-flash"
	DefaultTemperature     = 0.3

	// maxBatch is the per-request limit of the batch embedding endpoint.
	maxBatch = 100

	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

var ErrAPIKeyNotSet = errors.New("gemini API key not set: please set GOOGLE_API_KEY")

// modelsAPI is the subset of *genai.Models used here.
type modelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient creates the shared Gen AI client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// Embedder embeds text with a Gemini embedding model.
type Embedder struct {
	models modelsAPI
	model  string
}

func NewEmbedder(client *genai.Client, model string) *Embedder {
	return newEmbedder(client.Models, model)
}

func newEmbedder(models modelsAPI, model string) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{models: models, model: model}
}

func (e *Embedder) Name() string      { return "gemini" }
func (e *Embedder) Model() string     { return e.model }
func (e *Embedder) MaxBatchSize() int { return maxBatch }

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	if len(texts) > maxBatch {
		return nil, fmt.Errorf("batch size %d exceeds maximum of %d", len(texts), maxBatch)
	}
	return e.embed(ctx, texts, taskDocument)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: task})
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}

// Generator answers prompts with a Gemini chat model.
type Generator struct {
	models      modelsAPI
	model       string
	temperature float32
}

func NewGenerator(client *genai.Client, model string, temperature float64) *Generator {
	return newGenerator(client.Models, model, temperature)
}

func newGenerator(models modelsAPI, model string, temperature float64) *Generator {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &Generator{models: models, model: model, temperature: float32(temperature)}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

var (
	_ domain.Embedder  = (*Embedder)(nil)
	_ domain.Generator = (*Generator)(nil)
)
