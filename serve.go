package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivegate/internal/browse"
	"github.com/tonimelisma/drivegate/internal/config"
	"github.com/tonimelisma/drivegate/internal/metrics"
	"github.com/tonimelisma/drivegate/internal/proxy"
	"github.com/tonimelisma/drivegate/internal/server"
	"github.com/tonimelisma/drivegate/internal/transfer"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Run the HTTP gateway until interrupted.

The config file is watched while serving: changes to logging.log_level and
drive.root_folder_id apply immediately, other changes need a restart.
The first SIGINT or SIGTERM stops accepting requests, then waits up to
server.shutdown_timeout for in-flight requests and again for background
folder copies, canceling whatever is still running. A second signal exits
at once.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides server.listen)")
	cmd.Flags().String("root", "", "root folder ID (overrides drive.root_folder_id)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(resolvedCfg, os.Stderr)
	cfg := resolvedCfg

	if err := config.ValidateCredentials(cfg); err != nil {
		return err
	}

	holder := config.NewHolder(cfg, resolvedPath)
	m := metrics.New()
	sess := newSession(cfg, m, logger)

	transfers := transfer.NewService(sess.API, transfer.Options{
		MaxDepth:     cfg.Copy.MaxDepth,
		PollAttempts: cfg.Copy.PollAttempts,
		PollInterval: cfg.Copy.PollIntervalDuration(),
		FolderBudget: cfg.Copy.FolderBudgetDuration(),
		Metrics:      m,
	}, logger)

	srv := server.New(server.Deps{
		Browser:      browse.NewBrowser(sess.API, logger),
		Transfers:    transfers,
		Downloader:   proxy.NewDownloader(sess.Media, cfg.Proxy.BufferBytes(), m, logger),
		Forwarder:    proxy.NewForwarder(nil, cfg.Proxy.BufferBytes(), logger),
		Metrics:      m,
		RootFolderID: holder.RootFolderID,
		Logger:       logger,
	})

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Listen, err)
	}

	ctx, stop := shutdownContext(commandContext(cmd), logger)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx, ln, cfg.Server.ReadHeaderTimeoutDuration(), cfg.Server.ShutdownTimeoutDuration())
	})

	// A broken watcher only loses live reload; the gateway keeps serving.
	g.Go(func() error {
		err := config.Watch(gctx, holder, reloadFunc(cmd), func(_, cur *config.Config) {
			logLevel.Set(effectiveLevel(cur))
			logger.Info("live settings applied",
				slog.String("log_level", logLevel.Level().String()),
				slog.String("root_folder_id", cur.Drive.RootFolderID),
			)
		}, logger)
		if err != nil {
			logger.Warn("config reload disabled", slog.String("error", err.Error()))
		}

		return nil
	})

	err = g.Wait()

	logger.Info("waiting for background copies", slog.Duration("timeout", cfg.Server.ShutdownTimeoutDuration()))

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancelDrain()

	if !transfers.Drain(drainCtx) {
		logger.Warn("background copies canceled at shutdown timeout")
	}

	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// reloadFunc re-runs the full override chain so env and flag overrides keep
// winning over the edited file.
func reloadFunc(cmd *cobra.Command) config.ReloadFunc {
	return func() (*config.Config, error) {
		if err := loadConfig(cmd); err != nil {
			return nil, err
		}

		return resolvedCfg, nil
	}
}

// commandContext returns cmd's context, or Background when the command runs
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
