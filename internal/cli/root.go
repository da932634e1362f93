// Package cli provides the pointmap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pointmap/internal/config"
	"pointmap/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// app is the state shared by subcommands after the root pre-run.
type app struct {
	cfgFile  string
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func()
}

// terminalCommands own the screen, so their logs never go to stderr.
var terminalCommands = map[string]bool{"view": true}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{logger: logging.Discard()}

	rootCmd := &cobra.Command{
		Use:   "pointmap",
		Short: "pointmap - point cloud map viewer and points service",
		Long: `pointmap serves point samples from SQLite as Arrow IPC streams and
renders them over a slippy base map, in the terminal or to a PNG file.

Point colour follows intensity on a blue-green-red ramp saturating at 3.0.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./pointmap.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-file", "", "Append logs to this file")
	rootCmd.PersistentFlags().String("seq-url", "", "Also ship logs to this Seq endpoint")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newLoadCommand(a))
	rootCmd.AddCommand(newViewCommand(a))
	rootCmd.AddCommand(newExportCommand(a))
	rootCmd.AddCommand(newInspectCommand(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	var out io.Writer = cmd.ErrOrStderr()
	if terminalCommands[cmd.Name()] {
		out = io.Discard
	}
	logger, closeFn, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Output: out,
		SeqURL: cfg.Log.SeqURL,
	})
	if err != nil {
		return err
	}
	a.logger, a.closeLog = logger, closeFn
	if cfg.File != "" {
		a.logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
