package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amandocs/configs"
	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Long: `Manage the amandocs configuration file.

Configuration precedence (lowest to highest):
  1. Built-in defaults and documentation catalogue
  2. Config file (~/.amandocs/config.yaml, or --config)
  3. Environment variables (AMANDOCS_*)`,
		Example: `  # Create the config file from the commented template
  amandocs config init

  # Show the effective configuration
  amandocs config show

  # Print the config file path
  amandocs config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force     bool
		effective bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file",
		Long: `Create the configuration file from a commented template.

An existing file is left alone unless --force is given, in which case it is
backed up next to itself before being replaced. With --effective the file
receives the fully merged configuration instead of the template.`,
		Example: `  amandocs config init
  amandocs config init --force
  amandocs config init --force --effective`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, effective)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&effective, "effective", false, "Write the merged configuration instead of the template")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging all sources, or only the
built-in defaults and catalogue with --source defaults.`,
		Example: `  amandocs config show
  amandocs config show --json
  amandocs config show --source defaults`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), userConfigPath())
			return err
		},
	}
}

// userConfigPath is --config when set, else the default location.
func userConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.UserConfigPath()
}

func runConfigInit(cmd *cobra.Command, force, effective bool) error {
	out := output.New(cmd.OutOrStdout())
	path := userConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration file already exists")
		out.Statusf("📁", "Location: %s", path)
		out.Newline()
		out.Status("💡", "Use --force to replace it (a backup is kept)")
		return nil
	}

	var backup string
	if effective {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if backup, err = config.BackupFile(path); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.WriteYAML(path); err != nil {
			return err
		}
	} else {
		var err error
		if backup, err = config.WriteUserConfig(path, configs.UserConfigTemplate); err != nil {
			return err
		}
	}

	out.Success("Created configuration file")
	out.Statusf("📁", "Location: %s", path)
	if backup != "" {
		out.Statusf("💾", "Backup: %s", backup)
	}
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Add or override documentation repositories under docs.repositories")
	out.Status("", "  2. Run 'amandocs config show' to verify")
	out.Status("", "  3. Run 'amandocs index' to build the index")

	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg *config.Config
		err error
	)
	switch source {
	case "merged":
		cfg, err = loadConfig()
	case "defaults":
		cfg, err = config.Default()
	default:
		return fmt.Errorf("unknown config source %q (use merged or defaults)", source)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out.Statusf("📋", "Configuration (%s)", source)
	out.Newline()
	out.Text(string(data))
	return nil
}
