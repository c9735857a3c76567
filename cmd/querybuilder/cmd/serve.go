package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/solatis/querybuilder/internal/core/api"
	"github.com/solatis/querybuilder/internal/core/server"
	"github.com/solatis/querybuilder/internal/store"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC builder session service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().Bool("no-store", false, "run without the saved-query store")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	var st *store.Store
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		database, s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		st = s
	}

	service, err := api.NewQueryBuilderService(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting querybuilder session service",
		"version", Version, "host", cfg.Server.Host, "port", cfg.Server.Port, "store", st != nil)
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully", "sessions", service.SessionCount())
		return grpcServer.Shutdown(ctx)
	}
}
