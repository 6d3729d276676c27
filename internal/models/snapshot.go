package models

import "time"

// BookSnapshot is a point-in-time copy of the order book for consumers.
type BookSnapshot struct {
	Bids []Order
	Asks []Order
}

// BestBid returns the highest resting bid, or false if the side is empty.
func (s BookSnapshot) BestBid() (Order, bool) {
	if len(s.Bids) == 0 {
		return Order{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest resting ask, or false if the side is empty.
func (s BookSnapshot) BestAsk() (Order, bool) {
	if len(s.Asks) == 0 {
		return Order{}, false
	}
	return s.Asks[0], true
}

// AccountSnapshot is a point-in-time copy of the ledger state.
type AccountSnapshot struct {
	Cash          float64
	RealizedPnL   float64
	UnrealizedPnL float64
	Equity        float64
	Positions     []Position
}

// Tick is a market data event published to stream subscribers.
type Tick struct {
	Timestamp time.Time
	Price     float64
	// Trade is set when the tick was caused by an executed trade.
	Trade *Trade
}
