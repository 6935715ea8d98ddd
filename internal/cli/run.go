package cli

import (
	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
)

var (
	runDryRun    bool
	runOutputDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring loop until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{
			DryRun:    runDryRun,
			OutputDir: runOutputDir,
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Run without persisting observations")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "Directory for exported outputs (defaults to config)")
}
