package cmd

import (
	"context"
	"fmt"

	"github.com/solatis/querybuilder/internal/builder"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply EDITS_FILE",
	Short: "Apply an edit script to a query and print the result",
	Long: `Apply reads a list of edits (addRule, addGroup, remove, update, clone, set)
and runs them against the input query in order, printing the resulting tree.

Edits that cannot apply (unknown ids, vetoed changes) are skipped and
reported in the log; an unknown edit operation aborts the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	addQueryFlags(applyCmd)
	applyCmd.Flags().String("save", "", "save the result as a new version of this query")
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	raw, err := readDocument(args[0])
	if err != nil {
		return err
	}
	edits, err := builder.DecodeEdits(raw)
	if err != nil {
		return err
	}

	b, err := newBuilder(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}

	changed := 0
	for i, e := range edits {
		ok, err := b.Apply(e)
		if err != nil {
			return fmt.Errorf("edit %d: %w", i, err)
		}
		if ok {
			changed++
		} else {
			logger.Warn("edit skipped", "index", i, "op", e.Op, "id", e.ID, "parent_id", e.ParentID)
		}
	}
	logger.Info("edits applied", "total", len(edits), "changed", changed)

	if name, _ := cmd.Flags().GetString("save"); name != "" {
		database, st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		version, err := st.Save(ctx, name, b.Query())
		if err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		logger.Info("query saved", "name", name, "version", version)
	}

	return writeOutput(cmd.OutOrStdout(), b.Query())
}
