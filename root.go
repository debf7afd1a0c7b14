package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivegate/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg and resolvedPath hold the effective configuration loaded by
// PersistentPreRunE and the file it came from.
var (
	resolvedCfg  *config.Config
	resolvedPath string
)

// logLevel is shared by every logger built in this process so a config
// reload can change verbosity without rebuilding handlers.
var logLevel = new(slog.LevelVar)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drivegate",
		Short:   "Google Drive HTTP gateway",
		Long:    "Browse, stream, and server-side copy Google Drive content over plain HTTP.",
		Version: version,
		// Silence Cobra's default error/usage printing; exitOnError reports.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newCopyCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores the result for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		v := f.Value.String()
		cli.Listen = &v
	}

	if f := cmd.Flags().Lookup("root"); f != nil && f.Changed {
		v := f.Value.String()
		cli.RootFolderID = &v
	}

	cfg, path, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg
	resolvedPath = path

	return nil
}

// effectiveLevel returns the config log level unless --verbose or --quiet
// override it. CLI flags always win.
func effectiveLevel(cfg *config.Config) slog.Level {
	level := parseLevel("")
	if cfg != nil {
		level = parseLevel(cfg.Logging.LogLevel)
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return level
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildLogger creates the process logger on w. "auto" picks text for a
// terminal and JSON otherwise, so service logs are machine-readable.
func buildLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logLevel.Set(effectiveLevel(cfg))

	format := "auto"
	if cfg != nil {
		format = cfg.Logging.LogFormat
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
