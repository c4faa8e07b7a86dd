package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/mcp"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// searchOptions holds CLI flags shared by search and reference.
type searchOptions struct {
	project  string
	content  string
	limit    int
	maxChars int
	format   string
}

func (o *searchOptions) bind(cmd *cobra.Command, withLimit bool) {
	cmd.Flags().StringVarP(&o.project, "project", "p", "", "Restrict to one project (e.g. panel)")
	cmd.Flags().StringVarP(&o.content, "content", "c", "", "Content mode: "+strings.Join(search.ValidContentModes, ", ")+" (default truncated)")
	cmd.Flags().IntVar(&o.maxChars, "max-chars", 0, "Content budget for truncated content (default search.max_content_chars)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "text", "Output format: text, json")
	if withLimit {
		cmd.Flags().IntVarP(&o.limit, "limit", "n", 0, "Maximum number of documents (default search.max_results)")
	}
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documentation",
		Long: `Search the documentation by meaning. Returns at most one result per
source document, best first.`,
		Example: `  amandocs search "how to lay out widgets in a grid"
  amandocs search "datetime axis" --project hvplot --limit 3
  amandocs search "Tabulator editing" --content chunk --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	opts.bind(cmd, true)

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	mode, err := parseContentFlag(opts.content)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	slog.Debug("search_started", slog.String("query", query), slog.String("project", opts.project))
	results, err := a.engine.Search(ctx, query, search.SearchOptions{
		Project:         opts.project,
		Content:         mode,
		Limit:           opts.limit,
		MaxContentChars: opts.maxChars,
	})
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if opts.format == formatJSON {
		return out.JSON(emptyIfNil(results))
	}
	out.Text(mcp.FormatSearchResults(query, results))
	return nil
}

func newReferenceCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "reference <component>",
		Short: "Show the reference guide for a component",
		Long: `Find reference guide pages whose file name is exactly the component
name, such as Button for examples/reference/widgets/Button.ipynb.`,
		Example: `  amandocs reference Button
  amandocs reference scatter --project hvplot --content full`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReference(cmd.Context(), cmd, args[0], opts)
		},
	}

	opts.bind(cmd, false)

	return cmd
}

func runReference(ctx context.Context, cmd *cobra.Command, component string, opts searchOptions) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	mode, err := parseContentFlag(opts.content)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	results, err := a.engine.SearchReferenceGuide(ctx, component, search.ReferenceOptions{
		Project:         opts.project,
		Content:         mode,
		MaxContentChars: opts.maxChars,
	})
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if opts.format == formatJSON {
		return out.JSON(emptyIfNil(results))
	}
	out.Text(mcp.FormatReferenceResults(component, results))
	return nil
}

// parseContentFlag leaves an unset flag empty so the engine default applies.
func parseContentFlag(v string) (search.ContentMode, error) {
	if v == "" {
		return "", nil
	}
	return search.ParseContentMode(v)
}

func emptyIfNil(docs []search.Document) []search.Document {
	if docs == nil {
		return []search.Document{}
	}
	return docs
}
