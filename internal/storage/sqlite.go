package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	createRatesTableSQL = `CREATE TABLE IF NOT EXISTS rates (
        id        INTEGER PRIMARY KEY AUTOINCREMENT,
        target_id TEXT NOT NULL,
        ts        INTEGER NOT NULL,
        value     REAL NOT NULL
    )`
	createRatesIndexSQL = `CREATE INDEX IF NOT EXISTS idx_rates_target_ts ON rates (target_id, ts)`

	sqliteInsertRateSQL = `INSERT INTO rates (target_id, ts, value) VALUES (?, ?, ?)`

	sqliteRecentHistorySQL = `SELECT ts, value FROM rates
    WHERE target_id = ? AND ts >= ?
    ORDER BY ts ASC`
)

// SQLiteStore is a file-backed TimeSeriesStore. Timestamps are stored as
// UTC unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join(".", "data", "rates.db")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	for _, stmt := range []string{createRatesTableSQL, createRatesIndexSQL} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Append records one observation.
func (s *SQLiteStore) Append(ctx context.Context, targetID string, ts time.Time, value float64) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	if _, err := s.db.ExecContext(ctx, sqliteInsertRateSQL, targetID, ts.UTC().UnixNano(), value); err != nil {
		return fmt.Errorf("insert rate: %w", err)
	}
	return nil
}

// RecentHistory lists a target's observations within the lookback window,
// ascending by timestamp.
func (s *SQLiteStore) RecentHistory(ctx context.Context, targetID string, lookback time.Duration) ([]Observation, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}

	cutoff := time.Now().UTC().Add(-lookback)
	rows, err := s.db.QueryContext(ctx, sqliteRecentHistorySQL, targetID, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := make([]Observation, 0)
	for rows.Next() {
		var ns int64
		var value float64
		if err := rows.Scan(&ns, &value); err != nil {
			return nil, err
		}
		history = append(history, Observation{
			TargetID:  targetID,
			Timestamp: time.Unix(0, ns).UTC(),
			Value:     value,
		})
	}
	return history, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ TimeSeriesStore = (*SQLiteStore)(nil)
