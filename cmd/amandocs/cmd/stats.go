package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/config"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/search"
	"github.com/Aman-CERP/amandocs/internal/telemetry"
)

func newStatsCmd() *cobra.Command {
	var (
		days   int
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query metrics recorded by the server",
		Long: `Show how the MCP tools were queried: volume per tool and project,
latency, the most frequent terms and recent queries that found nothing.

Metrics are recorded by 'amandocs serve' in {data_dir}/metrics.db unless
telemetry.disabled is set. Nothing leaves the machine.`,
		Example: `  amandocs stats
  amandocs stats --days 30 --limit 20
  amandocs stats --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, days, limit, format)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to report, ending today")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of terms and zero-result queries to show")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, days, limit int, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if days <= 0 {
		return amerrors.ValidationError(fmt.Sprintf("--days must be positive, got %d", days), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := telemetry.Open(ctx, cfg.MetricsPath())
	if err != nil {
		return amerrors.IOError("cannot open query metrics", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Now().UTC()
	report, err := store.Report(ctx,
		now.AddDate(0, 0, -(days-1)).Format(time.DateOnly),
		now.Format(time.DateOnly),
		limit)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		return out.JSON(report)
	}
	printStats(out, report, cfg.Telemetry.Disabled)
	return nil
}

func printStats(out *output.Writer, r *telemetry.Report, disabled bool) {
	out.Statusf("📊", "Query metrics %s to %s", r.From, r.To)
	if disabled {
		out.Warning("Telemetry is disabled; no new queries are recorded")
	}
	if r.Total == 0 && r.Failures == 0 {
		out.Status("", "No queries recorded")
		return
	}

	out.Field("Queries", r.Total)
	out.Field("Failed", r.Failures)
	out.Field("Zero results", fmt.Sprintf("%d (%.1f%%)", r.ZeroCount, r.ZeroResultPercentage()))

	out.Newline()
	rows := make([][]string, 0, len(r.Kinds))
	for _, kind := range []telemetry.QueryKind{telemetry.KindSearch, telemetry.KindReference, telemetry.KindDocument} {
		if n := r.Kinds[kind]; n > 0 {
			rows = append(rows, []string{string(kind), strconv.FormatInt(n, 10)})
		}
	}
	out.Table([]string{"TOOL", "QUERIES"}, rows)

	if len(r.Projects) > 0 {
		out.Newline()
		out.Table([]string{"PROJECT", "QUERIES"}, countRows(r.Projects))
	}

	out.Newline()
	rows = rows[:0]
	for _, b := range telemetry.LatencyBuckets {
		rows = append(rows, []string{string(b), strconv.FormatInt(r.Latencies[b], 10)})
	}
	out.Table([]string{"LATENCY", "QUERIES"}, rows)

	if len(r.TopTerms) > 0 {
		out.Newline()
		rows = rows[:0]
		for _, tc := range r.TopTerms {
			rows = append(rows, []string{tc.Term, strconv.FormatInt(tc.Count, 10)})
		}
		out.Table([]string{"TERM", "COUNT"}, rows)
	}

	if len(r.ZeroResults) > 0 {
		out.Newline()
		out.Status("🔍", "Recent queries with no results:")
		rows = rows[:0]
		for _, z := range r.ZeroResults {
			rows = append(rows, []string{string(z.Kind), z.Query, z.Project})
		}
		out.Table([]string{"TOOL", "QUERY", "PROJECT"}, rows)
	}
}

// countRows sorts counts by value descending, then key.
func countRows(counts map[string]int64) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.FormatInt(counts[k], 10)})
	}
	return rows
}

// instrument wraps next with query metrics stored under cfg.DataDir. When
// telemetry is disabled or the store cannot be opened, next is returned
// unchanged. The returned func flushes and closes the store.
func instrument(ctx context.Context, cfg *config.Config, next search.Searcher) (search.Searcher, func()) {
	if cfg.Telemetry.Disabled {
		return next, func() {}
	}
	store, err := telemetry.Open(ctx, cfg.MetricsPath())
	if err != nil {
		slog.Warn("metrics_unavailable", slog.String("error", err.Error()))
		return next, func() {}
	}

	metrics := telemetry.New(store, telemetry.Options{
		FlushInterval: time.Minute,
		Logger:        slog.Default(),
	})
	return telemetry.NewSearcher(next, metrics), func() {
		if err := metrics.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("metrics_flush_failed", slog.String("error", err.Error()))
		}
		_ = store.Close()
	}
}
