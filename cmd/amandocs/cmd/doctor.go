package cmd

import (
	"context"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/preflight"
)

// doctorReport is the JSON shape of the doctor command.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd() *cobra.Command {
	var (
		verbose bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run diagnostics to ensure amandocs can clone, embed and store the
configured documentation.

Checks:
  - git on PATH
  - Data directory writable
  - Disk space (100 MB minimum, 2 GB recommended)
  - File descriptor limit
  - Configured repositories
  - Embedder (Ollama reachable with the model pulled, or static)
  - Index built

Exits with an error when a required check fails.`,
		Example: `  amandocs doctor
  amandocs doctor --verbose
  amandocs doctor --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd, verbose, format)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runDoctor(ctx context.Context, cmd *cobra.Command, verbose bool, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx, cfg)

	if format == formatJSON {
		report := doctorReport{Status: checker.SummaryStatus(results), Checks: results}
		if err := output.New(cmd.OutOrStdout()).JSON(report); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return amerrors.New(amerrors.ErrCodeInternal, "system check failed", nil).
			WithSuggestion("Fix the failed checks above and run 'amandocs doctor' again")
	}
	return nil
}
