package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ojashyadav101/lucy/internal/config"
	"github.com/ojashyadav101/lucy/internal/daemon"
)

// buildRootCmd creates the root command with all subcommands attached. This
// is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lucy",
		Short: "Lucy - a workspace-scoped AI coworker living inside Slack",
		Long: `Lucy listens on a single Slack workspace, classifies each message into a
routing tier, retrieves the tools most relevant to it, and runs an agent
loop against the configured model providers. A cron scheduler runs
workspace-defined scheduled tasks through the same agent loop.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildRunCmd())
	return rootCmd
}

// buildRunCmd creates the "run" command that starts the Lucy process.
func buildRunCmd() *cobra.Command {
	var (
		configPath string
		force      bool
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the Lucy process for one workspace",
		Long: `Start Lucy: load configuration, acquire the single-instance lock, connect
to Slack, and begin dispatching messages through the agent loop until a
SIGINT or SIGTERM is received.`,
		Example: `  # Start with default config
  lucy run

  # Start with a custom config
  lucy run --config /etc/lucy/production.yaml

  # Start even if a stale lock appears to be held
  lucy run --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLucy(cmd.Context(), resolveConfigPath(configPath), force, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./lucy.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVar(&force, "force", false, "Remove any existing instance lock before starting")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

// resolveConfigPath falls back to the LUCY_CONFIG environment variable when
// no --config flag was given.
func resolveConfigPath(path string) string {
	if path != "" && path != "./lucy.yaml" {
		return path
	}
	if env := os.Getenv("LUCY_CONFIG"); env != "" {
		return env
	}
	return path
}

// runLucy implements the run command: load config, take the single-instance
// lock, wire the process, and block until shutdown.
func runLucy(ctx context.Context, configPath string, force, debug bool) error {
	if debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	slog.Info("starting lucy", "version", version, "commit", commit, "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock, err := daemon.Acquire(daemon.Options{
		StateDir: filepath.Dir(cfg.Server.LockFile),
		Key:      cfg.Server.LockFile,
		Force:    force,
	})
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	defer lock.Release()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	if err := app.slack.Start(ctx); err != nil {
		return fmt.Errorf("start slack adapter: %w", err)
	}

	go app.runDispatchLoop(ctx)
	go app.runInteractionLoop(ctx)
	go app.scheduler.Run(ctx)

	go func() {
		if err := app.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	if app.spacesSrv != nil {
		go func() {
			if err := app.spacesSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("spaces server failed", "error", err)
			}
		}()
	}

	slog.Info("lucy started",
		"workspace_id", cfg.Workspace.ID,
		"metrics_addr", fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
	)

	<-ctx.Done()
	slog.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Close(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	slog.Info("lucy stopped gracefully")
	return nil
}
