package app

import (
	"context"
	"path/filepath"

	"rate-monitor/internal/exporter"
	"rate-monitor/internal/service"
)

// Once executes a single monitoring run over all targets and exports the
// results. The returned error reflects the aggregate run outcome; exports are
// written for the targets that succeeded even when others failed.
func (a *App) Once(ctx context.Context, opts OnceOptions) error {
	targets, err := a.loadTargets()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	notifiers, err := a.newNotifiers()
	if err != nil {
		return err
	}

	svc := a.newService(store, notifiers, opts.DryRun)
	report, runErr := svc.RunOnce(ctx, targets)

	if err := a.exportReport(report, a.resolveOutputDir(opts.OutputDir)); err != nil {
		a.Logger.Error().Err(err).Msg("failed to export run results")
		if runErr == nil {
			runErr = err
		}
	}

	return runErr
}

func (a *App) exportReport(report *service.RunReport, outputDir string) error {
	csvPath := filepath.Join(outputDir, "rates.csv")
	if err := exporter.WriteHistoryCSV(csvPath, report.Observations); err != nil {
		return err
	}

	jsonPath := filepath.Join(outputDir, "latest_stats.json")
	if err := exporter.WriteStatsJSON(jsonPath, report.Results); err != nil {
		return err
	}

	a.Logger.Info().
		Str("run_id", report.RunID).
		Str("output_dir", outputDir).
		Int("observations", len(report.Observations)).
		Msg("run results exported")
	return nil
}
