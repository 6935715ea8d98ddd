package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"rate-monitor/internal/alerting"
	"rate-monitor/internal/analyzer"
	"rate-monitor/internal/config"
	"rate-monitor/internal/parser"
	"rate-monitor/internal/storage"
)

// PageFetcher abstracts content retrieval for one URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options tune pipeline behaviour.
type Options struct {
	WindowShort  int
	WindowLong   int
	ThresholdPct float64
	Lookback     time.Duration
	Concurrency  int
	DryRun       bool
}

// Service runs the fetch, parse, persist, analyze, notify pipeline across
// the configured targets.
type Service struct {
	opts      Options
	fetcher   PageFetcher
	store     storage.TimeSeriesStore
	notifiers []alerting.Notifier
	logger    zerolog.Logger
	now       func() time.Time
}

// New constructs the pipeline service. store may be nil, in which case
// analysis sees only the freshly fetched observation.
func New(opts Options, f PageFetcher, store storage.TimeSeriesStore, notifiers []alerting.Notifier, logger zerolog.Logger) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{
		opts:      opts,
		fetcher:   f,
		store:     store,
		notifiers: notifiers,
		logger:    logger.With().Str("component", "service").Logger(),
		now:       time.Now,
	}
}

// TargetFailure records a per-target pipeline failure.
type TargetFailure struct {
	TargetID string
	Err      error
}

// RunReport aggregates one run's outcomes for export.
type RunReport struct {
	RunID        string
	StartedAt    time.Time
	Observations []storage.Observation
	Results      []analyzer.Result
	Failures     []TargetFailure
}

// Failed reports whether any target failed during the run.
func (r *RunReport) Failed() bool {
	return len(r.Failures) > 0
}

type outcome struct {
	obs storage.Observation
	res analyzer.Result
	err error
}

// RunOnce processes every target and aggregates the outcomes. Targets run
// independently: a failing target is recorded in the report and never aborts
// the others. The returned error is the aggregate run outcome; the report is
// always usable for export.
func (s *Service) RunOnce(ctx context.Context, targets []config.Target) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now().UTC(),
	}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	outcomes := make([]outcome, len(targets))
	var group errgroup.Group
	group.SetLimit(s.opts.Concurrency)
	for i, target := range targets {
		group.Go(func() error {
			obs, res, err := s.processTarget(ctx, logger, target)
			outcomes[i] = outcome{obs: obs, res: res, err: err}
			return nil
		})
	}
	_ = group.Wait()

	for i, target := range targets {
		if err := outcomes[i].err; err != nil {
			logger.Error().Err(err).Str("target", target.ID).Msg("target pipeline failed")
			report.Failures = append(report.Failures, TargetFailure{TargetID: target.ID, Err: err})
			continue
		}
		report.Observations = append(report.Observations, outcomes[i].obs)
		report.Results = append(report.Results, outcomes[i].res)
	}

	logger.Info().
		Int("targets", len(targets)).
		Int("failed", len(report.Failures)).
		Msg("run complete")

	if report.Failed() {
		return report, fmt.Errorf("%d of %d targets failed", len(report.Failures), len(targets))
	}
	return report, nil
}

func (s *Service) processTarget(ctx context.Context, logger zerolog.Logger, target config.Target) (storage.Observation, analyzer.Result, error) {
	body, err := s.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return storage.Observation{}, analyzer.Result{}, fmt.Errorf("fetch: %w", err)
	}

	value, err := parser.New(target.Selector).Parse(body)
	if err != nil {
		return storage.Observation{}, analyzer.Result{}, fmt.Errorf("extract value: %w", err)
	}

	obs := storage.Observation{
		TargetID:  target.ID,
		Timestamp: s.now().UTC(),
		Value:     value,
	}

	if s.store != nil && !s.opts.DryRun {
		if err := s.store.Append(ctx, obs.TargetID, obs.Timestamp, obs.Value); err != nil {
			return obs, analyzer.Result{}, fmt.Errorf("append observation: %w", err)
		}
	}

	var history []storage.Observation
	if s.store != nil {
		history, err = s.store.RecentHistory(ctx, target.ID, s.opts.Lookback)
		if err != nil {
			return obs, analyzer.Result{}, fmt.Errorf("read history: %w", err)
		}
	}
	if s.opts.DryRun || s.store == nil {
		// The fresh observation participates in the averages exactly as if
		// it had been persisted.
		history = append(history, obs)
	}

	res := analyzer.Analyze(history, s.opts.WindowShort, s.opts.WindowLong, s.opts.ThresholdPct, target.ID)
	logger.Info().
		Str("target", target.ID).
		Float64("value", value).
		Bool("alert", res.ShouldAlert).
		Msg("target sampled")

	for _, notifyErr := range alerting.Dispatch(ctx, s.notifiers, res) {
		logger.Error().Err(notifyErr).Str("target", target.ID).Msg("failed to dispatch alert")
	}

	return obs, res, nil
}
