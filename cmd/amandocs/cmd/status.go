package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/output"
)

// statusReport is the JSON shape of the status command.
type statusReport struct {
	*index.Status
	Configured []string           `json:"configured_projects"`
	Embeddings embed.EmbedderInfo `json:"embeddings"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and embedder status",
		Long: `Show whether the index is built, how many chunks and projects it
holds, where it is stored and which embedder is in use. Does not trigger
indexing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	st, err := a.index.Status(ctx)
	if err != nil {
		return err
	}
	report := statusReport{
		Status:     st,
		Configured: a.cfg.ProjectNames(),
		Embeddings: embed.GetInfo(ctx, a.embedder),
	}

	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		return out.JSON(report)
	}
	printStatus(out, report)
	return nil
}

func printStatus(out *output.Writer, r statusReport) {
	if r.Indexed {
		out.Successf("Index ready: %d chunks across %d projects", r.Chunks, len(r.Projects))
		out.Field("Projects", strings.Join(r.Projects, ", "))
	} else {
		out.Warning("Index is empty")
		out.Status("", "Run 'amandocs index' to build it")
	}
	out.Newline()
	out.Field("Configured", strings.Join(r.Configured, ", "))
	out.Field("Store", r.StoreDir)
	if r.HasBackup {
		out.Field("Backup", r.BackupDir)
	}
	available := "available"
	if !r.Embeddings.Available {
		available = "unavailable"
	}
	out.Field("Embedder", string(r.Embeddings.Provider)+" / "+r.Embeddings.Model+
		" ("+available+")")
	if r.LastRebuild != nil {
		out.Field("Last rebuild", r.LastRebuild.Finished.Format(time.RFC3339))
	}
}
