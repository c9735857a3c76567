package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/solatis/querybuilder/internal/core/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the saved-query database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	applied, err := db.MigrateUp(ctx, database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	for _, id := range applied {
		logger.Info("migration applied", "migration_id", id)
	}
	if len(applied) == 0 {
		logger.Info("database is up to date")
	}
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT\tDURATION")
	for _, st := range statuses {
		state, at, took := "pending", "-", "-"
		if st.Applied {
			state = "applied"
			if st.AppliedAt != nil {
				at = st.AppliedAt.Format(time.RFC3339)
			}
			took = fmt.Sprintf("%dms", st.ExecutionMs)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.ID, state, at, took)
	}
	return w.Flush()
}
