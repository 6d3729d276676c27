// Package store provides the session journal: an append-only record of
// executed trades and candles for post-session analysis. Nothing recorded
// here is ever loaded back into the engine.
package store

import (
	"context"
	"time"

	"market-simulator/internal/models"
)

// Recorder defines the session journal interface.
type Recorder interface {
	// RecordTrade appends an executed trade to the journal.
	RecordTrade(ctx context.Context, trade models.Trade) error
	// RecordCandles upserts the current candle series keyed by bucket start.
	RecordCandles(ctx context.Context, interval models.Interval, candles []models.Candle) error
	// Summary returns aggregate statistics over the journaled session.
	Summary(ctx context.Context) (*SessionSummary, error)
	// Close releases the underlying resources.
	Close() error
}

// SessionSummary holds aggregate statistics over a journaled session.
type SessionSummary struct {
	Trades     int
	Volume     float64
	HighPrice  float64
	LowPrice   float64
	FirstTrade time.Time
	LastTrade  time.Time
}

// NopRecorder discards everything. Used when journaling is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordTrade(context.Context, models.Trade) error { return nil }

func (NopRecorder) RecordCandles(context.Context, models.Interval, []models.Candle) error {
	return nil
}

func (NopRecorder) Summary(context.Context) (*SessionSummary, error) {
	return &SessionSummary{}, nil
}

func (NopRecorder) Close() error { return nil }

var _ Recorder = NopRecorder{}
