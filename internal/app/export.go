package app

import (
	"context"
	"errors"

	"rate-monitor/internal/exporter"
	"rate-monitor/internal/storage"
)

// Export re-exports stored history as CSV and/or a PNG chart without
// fetching anything.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	targets, err := a.loadTargets()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = a.Config.Monitoring.Lookback
	}
	maxPoints := opts.MaxPoints
	if maxPoints <= 0 {
		maxPoints = a.Config.Export.MaxDataPoints
	}

	observations := make([]storage.Observation, 0)
	for _, target := range targets {
		history, err := store.RecentHistory(ctx, target.ID, lookback)
		if err != nil {
			return err
		}
		observations = append(observations, history...)
	}
	if len(observations) == 0 {
		a.Logger.Info().Msg("no observations found for export window")
		return nil
	}

	a.Logger.Info().Int("observations", len(observations)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := exporter.WriteHistoryCSV(opts.CSVPath, observations); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := exporter.WriteChartPNG(opts.PNGPath, observations, maxPoints); err != nil {
			return err
		}
	}
	return nil
}
