package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider adapts OpenAI's embeddings endpoint to Provider.
type OpenAIProvider struct {
	client     openai.Client
	apiKey     string
	model      string
	dimensions int
	maxTokens  int
}

// NewOpenAIProvider builds a provider bound to model, with the vector
// dimensionality and context window the caller knows for that model (the
// embeddings endpoint does not report either).
func NewOpenAIProvider(apiKey, model string, dimensions, maxTokens int) *OpenAIProvider {
	return &OpenAIProvider{apiKey: apiKey, model: model, dimensions: dimensions, maxTokens: maxTokens}
}

func (p *OpenAIProvider) Initialize(ctx context.Context) error {
	if p.apiKey == "" {
		return errors.New("openai: missing API key")
	}
	p.client = openai.NewClient(option.WithAPIKey(p.apiKey))
	return nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("openai: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch sends at most 2048 inputs in one request, OpenAI's documented
// limit for the embeddings endpoint.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const maxBatchSize = 2048
	if len(texts) > maxBatchSize {
		return nil, fmt.Errorf("openai: batch size %d exceeds limit of %d", len(texts), maxBatchSize)
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: p.model,
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

func (p *OpenAIProvider) MaxContextSize() int {
	return p.maxTokens
}

// CountTokens approximates token count at four characters per token, the
// common rule of thumb for OpenAI's tokenizers, avoiding a dependency on a
// full BPE tokenizer for a diagnostic-only figure.
func (p *OpenAIProvider) CountTokens(text string) int {
	return (len(text) + 3) / 4
}

func (p *OpenAIProvider) Dispose() error {
	return nil
}
