package sim

import (
	simerrors "market-simulator/internal/errors"
	"market-simulator/internal/logging"
	"market-simulator/internal/models"
)

// OpenLong opens a long position of the given quantity at the best ask.
// Fails when the ask side is empty or the cost exceeds the cash balance.
func (e *Engine) OpenLong(qty float64) (models.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openLong(qty)
}

func (e *Engine) openLong(qty float64) (models.Position, error) {
	best, ok := e.book.BestAsk()
	if !ok {
		// No asks means nothing can be bought at any cash balance.
		return models.Position{}, simerrors.NewCommandError("openLong",
			"ask side is empty", simerrors.ErrInsufficientFunds)
	}

	pos, err := e.ledger.OpenLong(qty, best.Price, e.clock.Now())
	if err != nil {
		logging.LogCommandError(e.logger, "openLong", err)
		return models.Position{}, simerrors.NewCommandError("openLong", "open rejected", err)
	}

	logging.LogPosition(e.logger, pos.ID, string(pos.Side), "open", pos.Quantity, pos.EntryPrice)
	return pos, nil
}

// OpenShort opens a short position of the given quantity at the best bid,
// crediting the proceeds. Fails with ErrEmptyBook when the bid side is empty.
func (e *Engine) OpenShort(qty float64) (models.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openShort(qty)
}

func (e *Engine) openShort(qty float64) (models.Position, error) {
	best, ok := e.book.BestBid()
	if !ok {
		return models.Position{}, simerrors.NewCommandError("openShort",
			"bid side is empty", simerrors.ErrEmptyBook)
	}

	pos, err := e.ledger.OpenShort(qty, best.Price, e.clock.Now())
	if err != nil {
		logging.LogCommandError(e.logger, "openShort", err)
		return models.Position{}, simerrors.NewCommandError("openShort", "open rejected", err)
	}

	logging.LogPosition(e.logger, pos.ID, string(pos.Side), "open", pos.Quantity, pos.EntryPrice)
	return pos, nil
}

// ClosePosition realizes a position at the best price of the opposite side,
// falling back to the current reference price when that side is empty.
// Returns the realized P&L. Fails with ErrPositionNotFound for an unknown id.
func (e *Engine) ClosePosition(id string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var target *models.Position
	for _, pos := range e.ledger.Positions() {
		if pos.ID == id {
			p := pos
			target = &p
			break
		}
	}
	if target == nil {
		return 0, simerrors.NewCommandError("closePosition", "unknown position id",
			simerrors.ErrPositionNotFound)
	}

	closePrice := e.currentPrice
	if target.Side == models.PositionLong {
		if best, ok := e.book.BestBid(); ok {
			closePrice = best.Price
		}
	} else {
		if best, ok := e.book.BestAsk(); ok {
			closePrice = best.Price
		}
	}

	pos, realized, err := e.ledger.Close(id, closePrice)
	if err != nil {
		return 0, simerrors.NewCommandError("closePosition", "close rejected", err)
	}

	logging.LogPosition(e.logger, pos.ID, string(pos.Side), "close", pos.Quantity, closePrice)
	return realized, nil
}

// BuyStop is a one-shot conditional market buy: it opens a long position only
// when the trigger price is at or below the current price, evaluated once at
// call time. It is not a standing order; an unmet condition fails with
// ErrStopNotTriggered.
func (e *Engine) BuyStop(triggerPrice, qty float64) (models.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if triggerPrice > e.currentPrice {
		return models.Position{}, simerrors.NewCommandError("buyStop",
			"trigger above current price", simerrors.ErrStopNotTriggered)
	}
	return e.openLong(qty)
}

// SellStop is the symmetric one-shot conditional market sell: it opens a
// short position only when the trigger price is at or above the current
// price, evaluated once at call time.
func (e *Engine) SellStop(triggerPrice, qty float64) (models.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if triggerPrice < e.currentPrice {
		return models.Position{}, simerrors.NewCommandError("sellStop",
			"trigger below current price", simerrors.ErrStopNotTriggered)
	}
	return e.openShort(qty)
}
