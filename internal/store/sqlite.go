package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"market-simulator/internal/models"
)

// SQLiteRecorder implements Recorder using SQLite.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder creates a new SQLite-backed session journal.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	rec := &SQLiteRecorder{db: db}
	if err := rec.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRecorder) initSchema() error {
	schema := `
	-- Executed trades, append-only
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		quantity REAL NOT NULL
	);

	-- Candle series snapshots, keyed by interval and bucket start
	CREATE TABLE IF NOT EXISTS candles (
		interval TEXT NOT NULL,
		bucket_start DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (interval, bucket_start)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	`
	_, err := r.db.Exec(schema)
	return err
}

// RecordTrade appends an executed trade to the journal.
func (r *SQLiteRecorder) RecordTrade(ctx context.Context, trade models.Trade) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trades (id, timestamp, side, price, quantity)
		VALUES (?, ?, ?, ?, ?)
	`, trade.ID, trade.Timestamp, trade.Side, trade.Price, trade.Quantity)
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}
	return nil
}

// RecordCandles upserts the candle series keyed by bucket start.
func (r *SQLiteRecorder) RecordCandles(ctx context.Context, interval models.Interval, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (interval, bucket_start, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, string(interval), c.BucketStart, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Summary returns aggregate statistics over the journaled session.
func (r *SQLiteRecorder) Summary(ctx context.Context) (*SessionSummary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(quantity), 0),
		       COALESCE(MAX(price), 0),
		       COALESCE(MIN(price), 0),
		       COALESCE(MIN(timestamp), ''),
		       COALESCE(MAX(timestamp), '')
		FROM trades
	`)

	var summary SessionSummary
	var first, last string
	if err := row.Scan(&summary.Trades, &summary.Volume, &summary.HighPrice, &summary.LowPrice, &first, &last); err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	if summary.Trades > 0 {
		if t, err := parseSQLiteTime(first); err == nil {
			summary.FirstTrade = t
		}
		if t, err := parseSQLiteTime(last); err == nil {
			summary.LastTrade = t
		}
	}
	return &summary, nil
}

// Close closes the underlying database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}

var _ Recorder = (*SQLiteRecorder)(nil)
