package cmd

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/output"
)

func newIndexCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Clone the documentation sources and rebuild the index",
		Long: `Clone or update every configured documentation repository, then
replace the index with freshly chunked and embedded documents.

The previous index is backed up first and restored if the rebuild fails.`,
		Example: `  amandocs index
  amandocs index --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	summary, err := a.index.IndexDocumentation(ctx)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		return out.JSON(summary)
	}
	printSummary(out, summary)
	return nil
}

// printSummary prints the totals and a per-project breakdown.
func printSummary(out *output.Writer, s *index.Summary) {
	out.Successf("Indexed %d documents (%d chunks) across %d projects in %s",
		s.Documents, s.Chunks, len(s.Projects), s.Duration.Round(time.Millisecond))

	names := make([]string, 0, len(s.Projects))
	for name := range s.Projects {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p := s.Projects[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(p.Documents),
			strconv.Itoa(p.Regular),
			strconv.Itoa(p.Reference),
			strconv.Itoa(p.Chunks),
		})
	}
	out.Newline()
	out.Table([]string{"PROJECT", "DOCUMENTS", "REGULAR", "REFERENCE", "CHUNKS"}, rows)
}
