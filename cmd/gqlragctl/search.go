package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"gqlrag/model"
)

func newSearchCommand(logger *slog.Logger, flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query text>",
		Short: "Run a raw similarity search against the ingested schema documents, without the generation protocol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, flags, logger, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results to print")
	return cmd
}

func runSearch(cmd *cobra.Command, flags *globalFlags, logger *slog.Logger, queryText string, limit int) error {
	ctx := cmd.Context()

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

	vector, err := embedder.Embed(ctx, queryText)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	results, err := store.Search(ctx, vector, model.VectorSearchOptions{Limit: limit})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f  %-8s %s\n", r.Score, r.Document.Type, r.Document.Name)
	}
	return nil
}
