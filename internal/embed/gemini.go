package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the embedding model used when none is configured.
const DefaultGeminiModel = "gemini-embedding-001"

// Gemini embeds text with the Gemini embedding API, truncated to the
// pipeline width via Matryoshka output dimensionality.
type Gemini struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGemini builds a Gemini embedder. Model defaults to DefaultGeminiModel
// and dims to DefaultDimensions when zero-valued.
func NewGemini(ctx context.Context, apiKey, model string, dims int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedder requires an API key")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if dims <= 0 {
		dims = DefaultDimensions
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Gemini{client: client, model: model, dims: dims}, nil
}

func (g *Gemini) Dimensions() int { return g.dims }

func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: t}},
			Role:  "user",
		}
	}

	dims := int32(g.dims)
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("embedding API returned no response")
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs",
			len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("embedding %d missing from API response", i)
		}
		vec := make([]float64, len(emb.Values))
		for j, val := range emb.Values {
			vec[j] = float64(val)
		}
		// Truncated Matryoshka vectors are not unit length; renormalize.
		out[i] = Normalize(vec)
	}
	return out, nil
}
