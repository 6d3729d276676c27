// Package models provides domain models for the market simulator.
package models

import (
	"time"
)

// Side represents the side of an order or trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PositionSide represents the direction of an open position.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// Interval represents a candle time interval.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// Intervals lists all supported candle intervals.
var Intervals = []Interval{Interval1m, Interval5m, Interval15m, Interval1h, Interval1d}

// Granularity returns the real-time width of one candle bucket at 1x speed.
func (i Interval) Granularity() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether the interval is one of the supported values.
func (i Interval) Valid() bool {
	return i.Granularity() > 0
}

// Speeds lists the supported simulation speed multipliers.
var Speeds = []int{1, 2, 3, 5, 10}

// ValidSpeed reports whether the multiplier is a supported simulation speed.
func ValidSpeed(multiplier int) bool {
	for _, s := range Speeds {
		if s == multiplier {
			return true
		}
	}
	return false
}

// Order represents a resting limit order in the book.
type Order struct {
	ID        string
	Side      Side
	Price     float64
	Quantity  float64
	CreatedAt time.Time
}

// Trade represents an executed trade on the tape.
type Trade struct {
	ID        string
	Price     float64
	Quantity  float64
	Side      Side
	Timestamp time.Time
}

// PricePoint represents a raw price sample in the history series.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
}

// Candle represents OHLCV data for a single time bucket.
type Candle struct {
	BucketStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Position represents an open trading position.
type Position struct {
	ID            string
	Side          PositionSide
	EntryPrice    float64
	Quantity      float64
	OpenedAt      time.Time
	UnrealizedPnL float64
}

// CostBasis returns the principal locked in the position at entry.
func (p Position) CostBasis() float64 {
	return p.EntryPrice * p.Quantity
}
