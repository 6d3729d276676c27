// Package tape implements the bounded trade tape.
package tape

import (
	"market-simulator/internal/models"
)

// DefaultCapacity is the number of trades retained when none is configured.
const DefaultCapacity = 50

// Tape is a fixed-capacity FIFO log of executed trades. Once full, appending
// evicts the oldest trade. Not safe for concurrent use; the engine serializes
// all access.
type Tape struct {
	capacity int
	trades   []models.Trade
}

// New creates an empty tape with the given capacity.
func New(capacity int) *Tape {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tape{
		capacity: capacity,
		trades:   make([]models.Trade, 0, capacity),
	}
}

// Append records a trade, evicting the oldest if the tape is full.
func (t *Tape) Append(trade models.Trade) {
	if len(t.trades) == t.capacity {
		copy(t.trades, t.trades[1:])
		t.trades = t.trades[:len(t.trades)-1]
	}
	t.trades = append(t.trades, trade)
}

// Len returns the number of trades currently on the tape.
func (t *Tape) Len() int {
	return len(t.trades)
}

// Capacity returns the configured capacity.
func (t *Tape) Capacity() int {
	return t.capacity
}

// Recent returns a copy of the last n trades, newest first.
// A non-positive n returns the whole tape.
func (t *Tape) Recent(n int) []models.Trade {
	if n <= 0 || n > len(t.trades) {
		n = len(t.trades)
	}
	out := make([]models.Trade, n)
	for i := 0; i < n; i++ {
		out[i] = t.trades[len(t.trades)-1-i]
	}
	return out
}
