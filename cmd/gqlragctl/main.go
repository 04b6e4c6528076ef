// Command gqlragctl ingests a GraphQL schema into a vector store and
// generates operations against it from natural-language requests.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gqlrag/helper"
)

func main() {
	logger := slog.New(helper.NewPrettyHandler(os.Stderr, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
	}))

	rootCmd := newRootCommand(logger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "gqlragctl",
		Short:         "Ingest a GraphQL schema and generate operations against it",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	registerGlobalFlags(root, flags)

	root.AddCommand(newIngestCommand(logger, flags))
	root.AddCommand(newGenerateCommand(logger, flags))
	root.AddCommand(newSearchCommand(logger, flags))

	return root
}
