package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rate-monitor/internal/config"
)

// ErrNotConfigured indicates the store handle was not initialised.
var ErrNotConfigured = errors.New("storage: store not configured")

// TimeSeriesStore persists observations and serves back recent history.
type TimeSeriesStore interface {
	// Append records one observation for a target.
	Append(ctx context.Context, targetID string, ts time.Time, value float64) error
	// RecentHistory returns a target's observations within the lookback
	// window, ordered ascending by timestamp.
	RecentHistory(ctx context.Context, targetID string, lookback time.Duration) ([]Observation, error)
	// Close releases underlying resources.
	Close() error
}

// Open selects a store backend from configuration.
func Open(ctx context.Context, cfg config.StorageConfig) (TimeSeriesStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
