package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/docslice/internal/config"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or generate configuration",
	Long: `Print the resolved configuration after merging defaults, the config
file, environment variables and flags. With --init, write a config file with
the default settings instead.

Examples:
  docslice config
  docslice config --init
  docslice config --init --file /etc/docslice/docslice.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if initFile, _ := cmd.Flags().GetBool("init"); initFile {
			target, _ := cmd.Flags().GetString("file")
			if err := config.GenerateDefaultConfigFile(target); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			if target == "" {
				target = "docslice.yaml"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", target)
			return nil
		}

		loader := GetConfigLoader()
		out, err := yaml.Marshal(loader.GetResolvedConfig())
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}

		if used := loader.GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().Bool("init", false, "write a default configuration file")
	configCmd.Flags().String("file", "", "target path for --init (default: docslice.yaml)")
}
