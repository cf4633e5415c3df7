package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a config file",
	Long: `Run a paper-trading simulation using settings from a configuration file.

The configured order is opened at the first tick, the price steps are applied
on simulated time (stop-loss and take-profit may close the position), and
anything still open is closed at the last price.

Example:
  papertrader run -f examples/configs/basic.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runReportOrg  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runReportOrg, "org", false, "print the session report as Org-mode")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	s, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	logger.Info("simulation starting",
		"config", runConfigPath,
		"account", cfg.Account.ID,
		"symbol", cfg.Simulation.Symbol)

	report, err := s.simulate(cmd.Context(), out, time.Now(), nil)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSummary(report, s.engine.Account()))
	if runReportOrg {
		fmt.Fprintln(out)
		if err := report.WriteOrg(out); err != nil {
			return err
		}
	}
	return nil
}
