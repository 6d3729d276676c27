package sim

import (
	simerrors "market-simulator/internal/errors"
	"market-simulator/internal/models"
)

// CurrentPrice returns the price of the most recent executed trade, or the
// initial seed price if no trade has occurred.
func (e *Engine) CurrentPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentPrice
}

// OrderBook returns a copy of the top depth levels per side. A non-positive
// depth returns both sides in full.
func (e *Engine) OrderBook(depth int) models.BookSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot(depth)
}

// RecentTrades returns a copy of the last n trades, newest first.
func (e *Engine) RecentTrades(n int) []models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tape.Recent(n)
}

// PriceHistory returns a copy of the raw price samples, oldest first.
func (e *Engine) PriceHistory() []models.PricePoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg.History()
}

// Candles returns a copy of the candle series, oldest first.
func (e *Engine) Candles() []models.Candle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg.Candles()
}

// Account returns a point-in-time copy of the ledger state.
func (e *Engine) Account() models.AccountSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Snapshot()
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Interval returns the current candle interval.
func (e *Engine) Interval() models.Interval {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// SetSpeed changes the simulation speed multiplier. Both tick periods and the
// candle bucket width scale by it; the change takes effect on the next tick
// schedule.
func (e *Engine) SetSpeed(multiplier int) error {
	if !models.ValidSpeed(multiplier) {
		return simerrors.NewValidationError("speed", multiplier, "must be one of 1, 2, 3, 5, 10")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = multiplier
	e.agg.SetSpeed(multiplier)
	e.logger.Info().Int("speed", multiplier).Msg("Speed changed")
	return nil
}

// SetInterval changes the candle interval. Existing candles are re-bucketed
// under the new width on the next aggregation tick.
func (e *Engine) SetInterval(interval models.Interval) error {
	if !interval.Valid() {
		return simerrors.NewValidationError("interval", interval, "must be one of 1m, 5m, 15m, 1h, 1d")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.interval = interval
	e.agg.SetInterval(interval)
	e.logger.Info().Str("interval", string(interval)).Msg("Interval changed")
	return nil
}
