package cmd

import (
	"context"
	"time"

	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/store"
	"github.com/solatis/querybuilder/internal/types"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [NAME]",
	Short: "List saved queries or show one of them",
	Long: `Without a name, show lists the latest version of every saved query.
With a name it prints the latest version, a specific --version, or the
whole --history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Int("version", 0, "show this version instead of the latest")
	showCmd.Flags().Bool("history", false, "show every version")
	showCmd.Flags().Bool("delete", false, "delete every version of the query")
}

type savedView struct {
	Name      string           `json:"name"`
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	Cost      *int             `json:"cost,omitempty"`
	Query     *types.RuleGroup `json:"query,omitempty"`
}

func newSavedView(rec store.Record, withQuery bool) savedView {
	v := savedView{Name: rec.Name, Version: rec.Version, CreatedAt: rec.CreatedAt}
	if compiled, err := rules.Compile(rec.Query); err == nil {
		cost := rules.QueryCost(compiled)
		v.Cost = &cost
	}
	if withQuery {
		v.Query = rec.Query
	}
	return v
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	database, st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if len(args) == 0 {
		recs, err := st.List(ctx)
		if err != nil {
			return err
		}
		views := make([]savedView, 0, len(recs))
		for _, rec := range recs {
			views = append(views, newSavedView(rec, false))
		}
		return writeOutput(cmd.OutOrStdout(), views)
	}

	name := args[0]
	if del, _ := cmd.Flags().GetBool("delete"); del {
		if err := st.Delete(ctx, name); err != nil {
			return err
		}
		logger.Info("query deleted", "name", name)
		return nil
	}
	if history, _ := cmd.Flags().GetBool("history"); history {
		recs, err := st.History(ctx, name)
		if err != nil {
			return err
		}
		views := make([]savedView, 0, len(recs))
		for _, rec := range recs {
			views = append(views, newSavedView(rec, true))
		}
		return writeOutput(cmd.OutOrStdout(), views)
	}

	var rec store.Record
	if version, _ := cmd.Flags().GetInt("version"); version > 0 {
		rec, err = st.Version(ctx, name, version)
	} else {
		rec, err = st.Get(ctx, name)
	}
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), newSavedView(rec, true))
}
