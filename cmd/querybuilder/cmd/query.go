package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solatis/querybuilder/internal/builder"
	"github.com/solatis/querybuilder/internal/core/config"
	"github.com/spf13/cobra"
)

// addQueryFlags registers the flags selecting a command's input query.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "query file (JSON or YAML, - for stdin)")
	cmd.Flags().String("saved", "", "load the latest saved version of this query")
	cmd.MarkFlagsMutuallyExclusive("query", "saved")
}

// newBuilder creates a builder over the query selected by --query or
// --saved. Without either, the builder starts from an empty root group.
func newBuilder(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*builder.Builder, error) {
	opts := cfg.Builder.Options(logger)

	path, _ := cmd.Flags().GetString("query")
	saved, _ := cmd.Flags().GetString("saved")
	switch {
	case path != "":
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		opts.Query = doc
	case saved != "":
		database, st, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer database.Close()
		rec, err := st.Get(ctx, saved)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", saved, err)
		}
		opts.Query = rec.Query
	}
	return builder.New(opts), nil
}
