package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/mcp"
	"github.com/Aman-CERP/amandocs/internal/output"
)

func newGetCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get <project> <path>",
		Short: "Print one indexed document in full",
		Long: `Print the full text of the document stored at path in project.
The path is relative to the repository root, as shown by search.`,
		Example: `  amandocs get panel doc/how_to/layout/index.md
  amandocs get hvplot doc/user_guide/Plotting.ipynb --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd, args[0], args[1], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runGet(ctx context.Context, cmd *cobra.Command, project, path, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	doc, err := a.engine.GetDocument(ctx, path, project)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		return out.JSON(doc)
	}
	out.Text(mcp.FormatDocument(doc))
	return nil
}

func newProjectsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the indexed projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProjects(cmd.Context(), cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runProjects(ctx context.Context, cmd *cobra.Command, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	projects, err := a.engine.ListProjects(ctx)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		if projects == nil {
			projects = []string{}
		}
		return out.JSON(projects)
	}
	out.Text(mcp.FormatProjects(projects))
	return nil
}
