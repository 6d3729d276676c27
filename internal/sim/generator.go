package sim

import (
	"context"
	"errors"

	"github.com/google/uuid"

	simerrors "market-simulator/internal/errors"
	"market-simulator/internal/logging"
	"market-simulator/internal/models"
)

// Trader activity probabilities and ranges.
const (
	actProbability    = 0.5
	marketProbability = 0.8
	reseedProbability = 0.3
)

// MarketTick runs one step of the random trader activity generator. It is
// invoked by the market loop once per tick and exported so tests can drive
// the engine without real-time waits.
//
// Per tick: with probability 0.5 nothing happens; otherwise a uniformly
// chosen side places either a market order (p=0.8, quantity in [1, 11)) that
// fills against the best opposing level, or a limit order (price offset in
// [-2, 2) from the current price, quantity in [1, 6)). A market order against
// an empty side is a silent no-op. Independently, with probability 0.3 the
// book is reseeded around the current price.
func (e *Engine) MarketTick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	if e.rng.Float64() < actProbability {
		isBuy := e.rng.Float64() < 0.5
		if e.rng.Float64() < marketProbability {
			e.generatorMarketOrder(isBuy)
		} else {
			e.generatorLimitOrder(isBuy)
		}
	}

	// Liquidity replenishment, independent of the trade above.
	if e.rng.Float64() < reseedProbability {
		e.book.Seed(e.currentPrice)
	}
}

func (e *Engine) generatorMarketOrder(isBuy bool) {
	qty := e.rng.Float64()*10 + 1

	// A buy hits the asks, a sell hits the bids.
	restingSide := models.SideBuy
	tradeSide := models.SideSell
	if isBuy {
		restingSide = models.SideSell
		tradeSide = models.SideBuy
	}

	price, err := e.book.FillBest(restingSide, qty)
	if err != nil {
		if errors.Is(err, simerrors.ErrEmptyBook) {
			// Expected and frequent: no liquidity, no trade this tick.
			return
		}
		e.logger.Warn().Err(err).Msg("Generator fill failed")
		return
	}

	e.applyTrade(models.Trade{
		ID:        uuid.NewString(),
		Price:     price,
		Quantity:  qty,
		Side:      tradeSide,
		Timestamp: e.clock.Now(),
	})
}

func (e *Engine) generatorLimitOrder(isBuy bool) {
	side := models.SideSell
	if isBuy {
		side = models.SideBuy
	}
	order := models.Order{
		ID:        uuid.NewString(),
		Side:      side,
		Price:     e.currentPrice + (e.rng.Float64()-0.5)*4,
		Quantity:  e.rng.Float64()*5 + 1,
		CreatedAt: e.clock.Now(),
	}
	if err := e.book.InsertLimit(order); err != nil {
		e.logger.Warn().Err(err).Msg("Generator limit insert failed")
	}
}

// applyTrade records an executed trade: tape append, reference price update,
// mark-to-market, journal write, and hub broadcast. Caller holds the lock.
func (e *Engine) applyTrade(trade models.Trade) {
	e.tape.Append(trade)
	e.currentPrice = trade.Price
	e.ledger.MarkToMarket(trade.Price)

	if err := e.recorder.RecordTrade(context.Background(), trade); err != nil {
		e.logger.Warn().Err(err).Str("trade_id", trade.ID).Msg("Failed to journal trade")
	}
	logging.LogTrade(e.logger, trade.ID, string(trade.Side), trade.Quantity, trade.Price)

	e.hub.Publish(models.Tick{
		Timestamp: trade.Timestamp,
		Price:     trade.Price,
		Trade:     &trade,
	})
}

// AggregationTick feeds the current reference price into the aggregator. It
// is invoked by the aggregation loop once per tick and exported for tests.
func (e *Engine) AggregationTick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.agg.Observe(e.clock.Now(), e.currentPrice)
}
