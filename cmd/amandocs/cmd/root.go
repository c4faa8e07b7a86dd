// Package cmd provides the CLI commands for amandocs.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/profiling"
	"github.com/Aman-CERP/amandocs/pkg/version"
)

// Global flags
var (
	configPath     string
	debugMode      bool
	loggingCleanup func()

	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the amandocs CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amandocs",
		Short: "Documentation index and MCP server for HoloViz projects",
		Long: `amandocs clones documentation repositories, splits pages into chunks,
embeds them into a local vector index and serves search, document lookup
and reference-guide tools over the Model Context Protocol.

Run 'amandocs' with no arguments to start the MCP server on stdio.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd.Context(), "", true)
		},
	}

	cmd.SetVersionTemplate("amandocs version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.amandocs/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.amandocs/logs/")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReferenceCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newBestPracticesCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts the requested profiles and, with --debug,
// file logging at debug level.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = s
	}

	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		_ = stopProfiling()
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug_logging_enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopProfilingAndLogging writes the profiles and closes the debug log. It
// is safe to call more than once.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	err := stopProfiling()
	if loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

func stopProfiling() error {
	if profileSession == nil {
		return nil
	}
	err := profileSession.Stop()
	profileSession = nil
	if err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	return run(NewRootCmd(), os.Stderr)
}

// run executes root and prints a failure to stderr, as JSON when the
// failing command was asked for --format json.
func run(root *cobra.Command, stderr io.Writer) error {
	cmd, err := root.ExecuteC()
	// Post-run hooks are skipped when a command fails.
	_ = stopProfilingAndLogging(nil, nil)
	if err != nil {
		printError(stderr, err, wantsJSON(cmd))
	}
	return err
}

func wantsJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	f := cmd.Flags().Lookup("format")
	return f != nil && f.Value.String() == formatJSON
}

// printError prints coded errors with their details and hint, and anything
// else as a plain message. With asJSON every error is one JSON object.
func printError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		if data, jsonErr := amerrors.FormatJSON(err); jsonErr == nil {
			_, _ = fmt.Fprintln(w, string(data))
			return
		}
	}
	if amerrors.GetCode(err) != "" {
		_, _ = fmt.Fprint(w, amerrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %s\n", err)
}
