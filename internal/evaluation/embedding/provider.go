package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/openai/openai-go/v2"
)

// Dimensions is the vector size every provider must produce
const Dimensions = 1536

// Provider computes one embedding vector per text
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MockProvider derives a deterministic pseudo-embedding from the text itself.
// The same text always yields the same vector, so retrieval and ingest stay
// reproducible without spending API quota.
type MockProvider struct{}

// NewMockProvider creates a new MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Embed returns a 1536-dim vector with components in [-0.05, 0.05)
func (p *MockProvider) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))

	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, Dimensions)
	for i := range vec {
		vec[i] = float32(rng.Float64()*0.1 - 0.05)
	}

	return vec, nil
}

// OpenAIProvider computes embeddings with the OpenAI embeddings API
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAIProvider
func NewOpenAIProvider(client openai.Client, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: client,
		model:  model,
	}
}

// Embed returns the model's embedding for text, truncated to Dimensions
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model:      openai.EmbeddingModel(p.model),
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Dimensions: openai.Int(Dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	return vec, nil
}
