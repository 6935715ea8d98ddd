package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
)

var (
	simulateTargetID string
	simulateValues   []float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Feed a synthetic history through analysis and alert dispatch",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(simulateValues) == 0 {
			return errors.New("--values must be provided")
		}

		opts := app.SimulateOptions{
			TargetID: simulateTargetID,
			Values:   simulateValues,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateTargetID, "target", "simulated", "Target id to report in the alert")
	simulateCmd.Flags().Float64SliceVar(&simulateValues, "values", nil, "Comma-separated value history, oldest first")
}
