package app

import (
	"context"
	"errors"
	"time"

	"rate-monitor/internal/alerting"
	"rate-monitor/internal/analyzer"
	"rate-monitor/internal/storage"
)

// SimulateAlert feeds a synthetic value history through the analyzer and the
// configured notification channels. Nothing is fetched or persisted.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if len(opts.Values) == 0 {
		return errors.New("at least one value is required")
	}

	notifiers, err := a.newNotifiers()
	if err != nil {
		return err
	}
	if len(notifiers) == 0 {
		return errors.New("alerting is disabled or no channels are configured")
	}

	now := time.Now().UTC()
	history := make([]storage.Observation, 0, len(opts.Values))
	for i, value := range opts.Values {
		history = append(history, storage.Observation{
			TargetID:  opts.TargetID,
			Timestamp: now.Add(time.Duration(i-len(opts.Values)) * a.Config.Monitoring.Interval),
			Value:     value,
		})
	}

	res := analyzer.Analyze(
		history,
		a.Config.Analysis.WindowShort,
		a.Config.Analysis.WindowLong,
		a.Config.Alerting.ThresholdPct,
		opts.TargetID,
	)

	a.Logger.Info().
		Str("target", opts.TargetID).
		Bool("alert", res.ShouldAlert).
		Str("reason", res.Reason).
		Msg("simulated analysis")

	var dispatchErr error
	for _, err := range alerting.Dispatch(ctx, notifiers, res) {
		a.Logger.Error().Err(err).Msg("failed to dispatch simulated alert")
		dispatchErr = err
	}
	return dispatchErr
}
