package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/alerting"
	"rate-monitor/internal/config"
	"rate-monitor/internal/fetcher"
	"rate-monitor/internal/service"
	"rate-monitor/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// OnceOptions configure a single monitoring run.
type OnceOptions struct {
	DryRun    bool
	OutputDir string
}

// RunOptions configure the long-running monitoring loop.
type RunOptions struct {
	DryRun    bool
	OutputDir string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Lookback time.Duration
	Limit    int
}

// ExportOptions hold parameters for exporting stored history.
type ExportOptions struct {
	CSVPath   string
	PNGPath   string
	Lookback  time.Duration
	MaxPoints int
}

// SimulateOptions feed a synthetic history through analysis and dispatch.
type SimulateOptions struct {
	TargetID string
	Values   []float64
}

func (a *App) newFetcher() *fetcher.Fetcher {
	return fetcher.New(fetcher.Options{
		Timeout:        a.Config.Fetch.Timeout,
		MaxRetries:     a.Config.Fetch.MaxRetries,
		RetryDelay:     a.Config.Fetch.RetryDelay,
		RequestsPerSec: a.Config.Fetch.RequestsPerSec,
		UserAgent:      a.Config.Fetch.UserAgent,
		Headers:        a.Config.Fetch.Headers,
	}, a.Logger)
}

// newNotifiers builds the configured channels. With alerting disabled no
// channels are constructed and dispatch becomes a no-op.
func (a *App) newNotifiers() ([]alerting.Notifier, error) {
	if !a.Config.Alerting.Enabled {
		return nil, nil
	}

	notifiers := make([]alerting.Notifier, 0, len(a.Config.Alerting.Channels))
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "console":
			notifiers = append(notifiers, alerting.NewConsoleNotifier(nil))
		case "webhook":
			cfg := a.Config.Alerting.Webhook
			notifiers = append(notifiers, alerting.NewWebhookNotifier(cfg.URL, cfg.Timeout, a.Logger))
		case "telegram":
			cfg := a.Config.Alerting.Telegram
			notifier, err := alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, a.Logger)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, notifier)
		}
	}
	return notifiers, nil
}

func (a *App) openStore(ctx context.Context) (storage.TimeSeriesStore, func(), error) {
	store, err := storage.Open(ctx, a.Config.Storage)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("failed to close store")
		}
	}
	return store, closer, nil
}

func (a *App) loadTargets() ([]config.Target, error) {
	return config.LoadTargets(a.Config.TargetsFile)
}

func (a *App) newService(store storage.TimeSeriesStore, notifiers []alerting.Notifier, dryRun bool) *service.Service {
	opts := service.Options{
		WindowShort:  a.Config.Analysis.WindowShort,
		WindowLong:   a.Config.Analysis.WindowLong,
		ThresholdPct: a.Config.Alerting.ThresholdPct,
		Lookback:     a.Config.Monitoring.Lookback,
		Concurrency:  a.Config.Monitoring.Concurrency,
		DryRun:       dryRun,
	}
	return service.New(opts, a.newFetcher(), store, notifiers, a.Logger)
}

func (a *App) resolveOutputDir(override string) string {
	if override != "" {
		return override
	}
	return a.Config.Export.OutputDir
}
