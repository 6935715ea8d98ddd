package cli

import (
	"time"

	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
)

var (
	showLookback time.Duration
	showLimit    int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent observations per target",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ShowOptions{
			Lookback: showLookback,
			Limit:    showLimit,
		}
		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().DurationVar(&showLookback, "lookback", 0, "History window to display (defaults to config)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Maximum observations per target (0 for all)")
}
