package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "A margin paper-trading execution engine",
	Long: `Papertrader fills orders against a simulated margin account.

It provides tools for:
  - Running a scripted simulation from a config file
  - Serving the live event feed, metrics and account state over HTTP
  - Querying the SQLite history journal
  - Generating and validating configuration files`,
	SilenceUsage: true,
}

var (
	envFiles []string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load before PAPERTRADER_* overrides (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}
