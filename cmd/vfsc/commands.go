package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/michaeltoohig/unofficial-vfsc-graph/config"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/app"
)

type options struct {
	envFiles []string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "vfsc",
		Short:        "Vanuatu company registry ingest and relationship graph",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before the environment (default .env)")

	root.AddCommand(
		newServeCommand(opts),
		newWorkerCommand(opts),
		newIngestCommand(opts),
		newMigrateCommand(opts),
		newSessionsCommand(opts),
	)
	return root
}

func setup(opts *options) (config.Config, ectologger.Logger, error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// withApp starts the application, runs fn and stops it again.
func withApp(cmd *cobra.Command, opts *options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a := app.New(cfg, logger)
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.WithoutCancel(ctx))
		return err
	}
	defer func() {
		if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Warn("Shutdown finished with errors")
		}
	}()

	return fn(ctx, a)
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup, search and graph API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newWorkerCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume scraped company records from Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Work(ctx)
			})
		},
	}
}

func newIngestCommand(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a JSON array or JSON lines file of company records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				cfg, logger, err := setup(opts)
				if err != nil {
					return err
				}
				ctx, cancel := signalContext(cmd.Context())
				defer cancel()

				summary, stats, err := app.DryRun(ctx, cfg, args[0], logger)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"summary": summary, "stats": stats})
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				summary, err := a.Ingest(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, summary)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "ingest into an in-memory store and report what would change")
	return cmd
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), cfg, logger)
		},
	}
}

func newSessionsCommand(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show recent ingest sessions and the records they rejected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				reports, err := app.SessionReports(ctx, a.Services.Sessions, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, reports)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of sessions to show, 0 for all")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
