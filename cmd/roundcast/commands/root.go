package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "roundcast",
	Short: "Roundcast - round-based forecasting over Redis pub/sub",
	Long: `Roundcast runs a small multi-agent forecasting game over Redis pub/sub.

A moderator announces one event per round, forecasting agents answer with a
likelihood estimate, and a listener collects every answer. Reference notes
for each agent are seeded into Redis beforehand.

Start order:
  roundcast seed
  roundcast listener
  roundcast agent --id agent_1
  roundcast agent --id agent_2
  roundcast moderator`,
	// Show help instead of silently succeeding without a subcommand.
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Cobra's own error and usage printing is
// silenced; the printer package reports errors.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
}
