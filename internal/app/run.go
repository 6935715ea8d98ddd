package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"rate-monitor/internal/scheduler"
)

// Run executes the long-running monitoring loop until interrupted. Each tick
// is one full pipeline run; per-run failures are logged and the loop
// continues.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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
	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Monitoring.Interval,
		AlignToStart: a.Config.Monitoring.AlignToBucket,
	}, a.Logger)

	outputDir := a.resolveOutputDir(opts.OutputDir)

	a.Logger.Info().
		Int("targets", len(targets)).
		Dur("interval", a.Config.Monitoring.Interval).
		Msg("starting monitoring loop")

	err = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		report, runErr := svc.RunOnce(ctx, targets)
		if exportErr := a.exportReport(report, outputDir); exportErr != nil {
			a.Logger.Error().Err(exportErr).Msg("failed to export run results")
		}
		return runErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitoring loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring loop stopped")
	return nil
}
