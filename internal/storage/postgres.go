package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rate-monitor/internal/config"
)

const (
	pgCreateRatesTableSQL = `CREATE TABLE IF NOT EXISTS rates (
        id        BIGSERIAL PRIMARY KEY,
        target_id TEXT NOT NULL,
        ts        TIMESTAMPTZ NOT NULL,
        value     DOUBLE PRECISION NOT NULL
    )`
	pgCreateRatesIndexSQL = `CREATE INDEX IF NOT EXISTS idx_rates_target_ts ON rates (target_id, ts)`

	pgInsertRateSQL = `INSERT INTO rates (target_id, ts, value) VALUES ($1, $2, $3)`

	pgRecentHistorySQL = `SELECT ts, value FROM rates
    WHERE target_id = $1 AND ts >= $2
    ORDER BY ts ASC`
)

// PostgresStore is a pgx-backed TimeSeriesStore for shared deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool and bootstraps the schema.
func OpenPostgres(ctx context.Context, cfg config.StorageConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required for the postgres driver")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse storage dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	s := &PostgresStore{pool: pool}
	for _, stmt := range []string{pgCreateRatesTableSQL, pgCreateRatesIndexSQL} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return s, nil
}

// Append records one observation.
func (s *PostgresStore) Append(ctx context.Context, targetID string, ts time.Time, value float64) error {
	if s == nil || s.pool == nil {
		return ErrNotConfigured
	}
	if _, err := s.pool.Exec(ctx, pgInsertRateSQL, targetID, ts.UTC(), value); err != nil {
		return fmt.Errorf("insert rate: %w", err)
	}
	return nil
}

// RecentHistory lists a target's observations within the lookback window,
// ascending by timestamp.
func (s *PostgresStore) RecentHistory(ctx context.Context, targetID string, lookback time.Duration) ([]Observation, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}

	cutoff := time.Now().UTC().Add(-lookback)
	rows, err := s.pool.Query(ctx, pgRecentHistorySQL, targetID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := make([]Observation, 0)
	for rows.Next() {
		var ts time.Time
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, err
		}
		history = append(history, Observation{
			TargetID:  targetID,
			Timestamp: ts.UTC(),
			Value:     value,
		})
	}
	return history, rows.Err()
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var _ TimeSeriesStore = (*PostgresStore)(nil)
