// Package ledger implements cash and position accounting for the simulator.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"market-simulator/internal/errors"
	"market-simulator/internal/models"
)

// Ledger tracks the cash balance and the set of open positions. It is pure
// accounting: execution prices are supplied by the caller, and unrealized
// P&L is always recomputed from the current reference price, never patched
// incrementally. Not safe for concurrent use; the engine serializes access.
type Ledger struct {
	cash      float64
	realized  float64
	positions []models.Position
}

// New creates a ledger with the given starting cash balance.
func New(initialBalance float64) *Ledger {
	return &Ledger{cash: initialBalance}
}

// OpenLong debits the cost of a long position at the given entry price and
// adds it to the open set. Fails with ErrInsufficientFunds when the cost
// exceeds the cash balance.
func (l *Ledger) OpenLong(qty, entryPrice float64, now time.Time) (models.Position, error) {
	if qty <= 0 {
		return models.Position{}, errors.ErrInvalidQuantity
	}
	cost := qty * entryPrice
	if l.cash < cost {
		return models.Position{}, errors.Wrapf(errors.ErrInsufficientFunds,
			"need %.2f, have %.2f", cost, l.cash)
	}

	l.cash -= cost
	pos := models.Position{
		ID:         uuid.NewString(),
		Side:       models.PositionLong,
		EntryPrice: entryPrice,
		Quantity:   qty,
		OpenedAt:   now,
	}
	l.positions = append(l.positions, pos)
	return pos, nil
}

// OpenShort credits the proceeds of a short position at the given entry price
// and adds it to the open set. There is no margin check; proceeds-on-open is
// the simulator's convention.
func (l *Ledger) OpenShort(qty, entryPrice float64, now time.Time) (models.Position, error) {
	if qty <= 0 {
		return models.Position{}, errors.ErrInvalidQuantity
	}

	l.cash += qty * entryPrice
	pos := models.Position{
		ID:         uuid.NewString(),
		Side:       models.PositionShort,
		EntryPrice: entryPrice,
		Quantity:   qty,
		OpenedAt:   now,
	}
	l.positions = append(l.positions, pos)
	return pos, nil
}

// Close realizes a position at the given close price, credits the realized
// P&L plus the returned principal to cash, and removes the position from the
// open set. Fails with ErrPositionNotFound for an unknown id.
func (l *Ledger) Close(id string, closePrice float64) (models.Position, float64, error) {
	for i, pos := range l.positions {
		if pos.ID != id {
			continue
		}

		pnl := profit(pos, closePrice)
		l.cash += pnl + pos.CostBasis()
		l.realized += pnl
		l.positions = append(l.positions[:i], l.positions[i+1:]...)

		pos.UnrealizedPnL = 0
		return pos, pnl, nil
	}
	return models.Position{}, 0, errors.Wrapf(errors.ErrPositionNotFound, "id %s", id)
}

// MarkToMarket recomputes every open position's unrealized P&L against the
// given reference price. Never fails.
func (l *Ledger) MarkToMarket(currentPrice float64) {
	for i := range l.positions {
		l.positions[i].UnrealizedPnL = profit(l.positions[i], currentPrice)
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// RealizedPnL returns the cumulative realized P&L of the session.
func (l *Ledger) RealizedPnL() float64 {
	return l.realized
}

// UnrealizedPnL returns the sum of unrealized P&L across open positions, as
// of the last MarkToMarket.
func (l *Ledger) UnrealizedPnL() float64 {
	var total float64
	for i := range l.positions {
		total += l.positions[i].UnrealizedPnL
	}
	return total
}

// Positions returns a copy of the open positions in opening order.
func (l *Ledger) Positions() []models.Position {
	out := make([]models.Position, len(l.positions))
	copy(out, l.positions)
	return out
}

// Snapshot returns a point-in-time copy of the account state. Equity is cash
// plus the principal locked in open positions plus their unrealized P&L,
// matching the credit convention applied on close.
func (l *Ledger) Snapshot() models.AccountSnapshot {
	snap := models.AccountSnapshot{
		Cash:          l.cash,
		RealizedPnL:   l.realized,
		UnrealizedPnL: l.UnrealizedPnL(),
		Positions:     l.Positions(),
	}
	snap.Equity = snap.Cash + snap.UnrealizedPnL
	for i := range snap.Positions {
		snap.Equity += snap.Positions[i].CostBasis()
	}
	return snap
}

func profit(pos models.Position, price float64) float64 {
	if pos.Side == models.PositionLong {
		return (price - pos.EntryPrice) * pos.Quantity
	}
	return (pos.EntryPrice - price) * pos.Quantity
}
