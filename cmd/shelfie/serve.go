package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/Shelfie/internal/api"
	"github.com/IshaanNene/Shelfie/internal/dashboard"
	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/observability"
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard and control API",
		Long: `Serve the dashboard page and the control API. Runs are started from the
page or with POST /api/runs; one run executes at a time.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :5000)")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "session type: browser or http")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&useMongo, "mongo", false, "also store products in MongoDB")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	state := dashboard.NewRunState()
	logger := setupLogger(cfg, func(h slog.Handler) slog.Handler {
		return dashboard.NewLogTap(h, state, slog.LevelInfo)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(logger)
	server := api.NewServer(cfg, state, fetcher.NewOpener(&cfg.Browser, logger), metrics, logger)

	logger.Info("open the dashboard in a browser", "addr", cfg.Server.Addr)
	return server.ListenAndServe(ctx)
}
