package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gqlrag/core/pipeline"
)

func newIngestCommand(logger *slog.Logger, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <schema.graphql|->",
		Short: "Parse, chunk, embed, and store a GraphQL SDL file, diffing against whatever was previously ingested",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, flags, logger, args[0])
		},
	}
}

func runIngest(cmd *cobra.Command, flags *globalFlags, logger *slog.Logger, path string) error {
	ctx := cmd.Context()

	sdl, err := readSchema(path)
	if err != nil {
		return err
	}

	store, err := newVectorStore(ctx, flags, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := newEmbeddingProvider(ctx, flags)
	if err != nil {
		return err
	}
	defer embedder.Dispose()

	service := pipeline.NewEmbeddingService(embedder, store, flags.maxChunkSize)

	result, err := service.EmbedAndStoreIncremental(ctx, sdl)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	logger.Info("ingested schema",
		slog.Int("added", result.Added),
		slog.Int("deleted", result.Deleted),
		slog.Int("unchanged", result.Unchanged),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "added=%d deleted=%d unchanged=%d\n", result.Added, result.Deleted, result.Unchanged)
	return nil
}

func readSchema(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read schema from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read schema file: %w", err)
	}
	return string(data), nil
}
