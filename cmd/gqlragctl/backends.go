package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gqlrag/database"
	"gqlrag/embedding"
	"gqlrag/helper"
	"gqlrag/llm"
)

// globalFlags are shared by every subcommand: which backend to store
// vectors in, and which embedding/LLM providers to call out to.
type globalFlags struct {
	backend          string
	qdrantDSN        string
	qdrantCollection string
	embeddingDim     int
	embeddingModel   string
	embeddingMaxTok  int
	llmModel         string
	maxChunkSize     int
}

func registerGlobalFlags(cmd *cobra.Command, flags *globalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.backend, "backend", "memory", "vector store backend: memory, postgres, or qdrant")
	pf.StringVar(&flags.qdrantDSN, "qdrant-dsn", "localhost:6334", "Qdrant gRPC address (qdrant backend only)")
	pf.StringVar(&flags.qdrantCollection, "qdrant-collection", "gqlrag", "Qdrant collection name (qdrant backend only)")
	pf.IntVar(&flags.embeddingDim, "embedding-dim", 1536, "embedding vector dimensionality")
	pf.StringVar(&flags.embeddingModel, "embedding-model", "text-embedding-3-small", "OpenAI embedding model")
	pf.IntVar(&flags.embeddingMaxTok, "embedding-max-tokens", 8191, "embedding model's max input tokens")
	pf.StringVar(&flags.llmModel, "llm-model", "claude-sonnet-4-5", "Anthropic model used for classification and generation")
	pf.IntVar(&flags.maxChunkSize, "max-chunk-size", 0, "split documents over this many characters into field-boundary chunks (0 disables chunking)")
}

// newVectorStore builds and initializes the backend named by flags.backend.
func newVectorStore(ctx context.Context, flags *globalFlags, logger *slog.Logger) (database.VectorStore, error) {
	switch flags.backend {
	case "memory":
		store := database.NewMemoryVectorStore()
		return store, nil
	case "postgres":
		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, fmt.Errorf("load database configuration: %w", err)
		}
		db := helper.NewDatabase("gqlragctl", dbConfig, logger)
		store, err := database.NewPostgresVectorStore(db, flags.embeddingDim, false)
		if err != nil {
			return nil, fmt.Errorf("open postgres vector store: %w", err)
		}
		if err := store.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initialize postgres vector store: %w", err)
		}
		return store, nil
	case "qdrant":
		store, err := database.NewQdrantVectorStore(flags.qdrantDSN, flags.qdrantCollection, flags.embeddingDim)
		if err != nil {
			return nil, fmt.Errorf("open qdrant vector store: %w", err)
		}
		if err := store.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initialize qdrant vector store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want memory, postgres, or qdrant)", flags.backend)
	}
}

// newEmbeddingProvider builds the reference OpenAI-compatible embedding
// provider, reading the API key from the environment.
func newEmbeddingProvider(ctx context.Context, flags *globalFlags) (embedding.Provider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	provider := embedding.NewOpenAIProvider(apiKey, flags.embeddingModel, flags.embeddingDim, flags.embeddingMaxTok)
	if err := provider.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize embedding provider: %w", err)
	}
	return provider, nil
}

// newLLMProvider builds the reference Anthropic completion provider,
// reading the API key from the environment.
func newLLMProvider(ctx context.Context, flags *globalFlags) (llm.Provider, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	provider := llm.NewAnthropicProvider(apiKey, flags.llmModel)
	if err := provider.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize llm provider: %w", err)
	}
	return provider, nil
}
