package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"gqlrag/core/retrieval"
	"gqlrag/model"
)

func newGenerateCommand(logger *slog.Logger, flags *globalFlags) *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "generate <request text>",
		Short: "Generate a GraphQL operation for a natural-language request against the ingested schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags, logger, args[0], schemaPath)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the SDL file to validate against (optional; parse-only repair loop runs if omitted)")
	return cmd
}

func runGenerate(cmd *cobra.Command, flags *globalFlags, logger *slog.Logger, requestText, schemaPath string) error {
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

	llmProvider, err := newLLMProvider(ctx, flags)
	if err != nil {
		return err
	}
	defer llmProvider.Dispose()

	vector, err := embedder.Embed(ctx, requestText)
	if err != nil {
		return fmt.Errorf("embed request: %w", err)
	}

	var schema *ast.Schema
	if schemaPath != "" {
		sdl, err := readSchema(schemaPath)
		if err != nil {
			return err
		}
		schema, err = gqlparser.LoadSchema(&ast.Source{Name: schemaPath, Input: sdl})
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}
	}

	gen := retrieval.NewGenerator(store, llmProvider, model.DefaultGeneratorConfig())
	result, err := gen.Generate(ctx, model.GenerationContext{InputVector: vector, InputText: requestText}, schema)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
