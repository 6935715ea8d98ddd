package cli

import (
	"time"

	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
)

var (
	exportCSVPath   string
	exportPNGPath   string
	exportLookback  time.Duration
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			Lookback:  exportLookback,
			MaxPoints: exportMaxPoints,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().DurationVar(&exportLookback, "lookback", 0, "History window to export (defaults to config)")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum chart points per target (defaults to config)")
}
