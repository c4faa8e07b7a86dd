package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/bestpractices"
	"github.com/Aman-CERP/amandocs/internal/mcp"
	"github.com/Aman-CERP/amandocs/internal/output"
)

func newBestPracticesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "best-practices [package]",
		Short: "Print the best practices for a package, or list them",
		Long: `Print the best practices guide for a package as markdown. Without a
package, list every package that has one.

Guides in ~/.amandocs/best-practices override the built-in ones with the
same name.`,
		Example: `  amandocs best-practices
  amandocs best-practices panel
  amandocs best-practices panel_material_ui --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runBestPractices(cmd, name, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runBestPractices(cmd *cobra.Command, name, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := bestpractices.New(cfg.BestPracticesDir())
	out := output.New(cmd.OutOrStdout())

	if name == "" {
		names, err := store.List()
		if err != nil {
			return err
		}
		if format == formatJSON {
			return out.JSON(names)
		}
		out.Text(mcp.FormatBestPractices(names))
		return nil
	}

	guide, err := store.Get(name)
	if err != nil {
		return err
	}
	if format == formatJSON {
		return out.JSON(guide)
	}
	out.Text(guide.Content)
	return nil
}
