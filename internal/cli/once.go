package cli

import (
	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
)

var (
	onceDryRun    bool
	onceOutputDir string
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run one monitoring pass over all targets and export the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.OnceOptions{
			DryRun:    onceDryRun,
			OutputDir: onceOutputDir,
		}
		return getApp().Once(cmd.Context(), opts)
	},
}

func init() {
	onceCmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "Run without persisting observations")
	onceCmd.Flags().StringVar(&onceOutputDir, "output-dir", "", "Directory for exported outputs (defaults to config)")
}
