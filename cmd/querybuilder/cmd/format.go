package cmd

import (
	"context"
	"fmt"

	"github.com/solatis/querybuilder/internal/format"
	"github.com/solatis/querybuilder/internal/types"
	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Render a query as JSON, a SQL WHERE clause or an expr-lang expression",
	Args:  cobra.NoArgs,
	RunE:  runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)
	addQueryFlags(formatCmd)
	formatCmd.Flags().String("to", "json", "target format (json, sql, expr)")
	formatCmd.Flags().Bool("dollar", false, "use $n placeholders in SQL output")
}

func runFormat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	b, err := newBuilder(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	q := b.Query()

	to, _ := cmd.Flags().GetString("to")
	switch to {
	case "json":
		return writeOutput(cmd.OutOrStdout(), q)
	case "sql":
		opts := format.SQLOptions{}
		if dollar, _ := cmd.Flags().GetBool("dollar"); dollar {
			opts.Placeholder = format.Dollar
		}
		where, params, err := format.ToSQL(q, opts)
		if err != nil {
			return err
		}
		if params == nil {
			params = []any{}
		}
		return writeOutput(cmd.OutOrStdout(), map[string]any{"sql": where, "args": params})
	case "expr":
		code, err := format.ToExpr(q)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), code)
		return err
	default:
		return fmt.Errorf("%w: %q", types.ErrUnknownFormat, to)
	}
}
