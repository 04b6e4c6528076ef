// Package embedding defines the narrow embedding-provider contract used by
// the embedding service, plus a concrete adapter.
package embedding

import "context"

// Provider turns text into fixed-dimension vectors.
type Provider interface {
	Initialize(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	MaxContextSize() int
	CountTokens(text string) int
	Dispose() error
}
