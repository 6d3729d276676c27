// Package book implements the simulated order book.
package book

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"market-simulator/internal/errors"
	"market-simulator/internal/models"
)

// Config holds order book parameters.
type Config struct {
	// SeedDepth is the number of synthetic levels generated per side by Seed.
	SeedDepth int
	// SideCapacity is the maximum number of resting orders kept per side.
	SideCapacity int
}

// DefaultConfig returns the default book configuration.
func DefaultConfig() Config {
	return Config{
		SeedDepth:    10,
		SideCapacity: 20,
	}
}

// Book holds the two ranked sides of resting limit orders.
//
// Bids are sorted descending by price, asks ascending, so the best price on
// each side is always at index 0. The book is not safe for concurrent use;
// the engine serializes all access.
type Book struct {
	cfg  Config
	rng  *rand.Rand
	now  func() time.Time
	bids []models.Order
	asks []models.Order
}

// New creates an empty order book.
func New(cfg Config, rng *rand.Rand, now func() time.Time) *Book {
	if cfg.SeedDepth <= 0 {
		cfg.SeedDepth = DefaultConfig().SeedDepth
	}
	if cfg.SideCapacity <= 0 {
		cfg.SideCapacity = DefaultConfig().SideCapacity
	}
	return &Book{
		cfg: cfg,
		rng: rng,
		now: now,
	}
}

// Seed discards all resting orders and regenerates synthetic liquidity around
// the reference price: SeedDepth bids below and asks above, each level offset
// by (i+1)*0.5 with a random quantity in [1, 11).
func (b *Book) Seed(referencePrice float64) {
	b.bids = b.bids[:0]
	b.asks = b.asks[:0]

	now := b.now()
	for i := 0; i < b.cfg.SeedDepth; i++ {
		offset := float64(i+1) * 0.5
		qty := b.rng.Float64()*10 + 1

		b.bids = append(b.bids, models.Order{
			ID:        uuid.NewString(),
			Side:      models.SideBuy,
			Price:     referencePrice - offset,
			Quantity:  qty,
			CreatedAt: now,
		})
		b.asks = append(b.asks, models.Order{
			ID:        uuid.NewString(),
			Side:      models.SideSell,
			Price:     referencePrice + offset,
			Quantity:  b.rng.Float64()*10 + 1,
			CreatedAt: now,
		})
	}
	b.sortSides()
}

// InsertLimit adds a resting limit order to the side matching its Side field,
// re-sorts, and evicts the worst-priced orders beyond the side capacity.
func (b *Book) InsertLimit(order models.Order) error {
	if order.Quantity <= 0 {
		return errors.ErrInvalidQuantity
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = b.now()
	}

	switch order.Side {
	case models.SideBuy:
		b.bids = append(b.bids, order)
	case models.SideSell:
		b.asks = append(b.asks, order)
	default:
		return errors.NewValidationError("side", order.Side, "must be BUY or SELL")
	}

	b.sortSides()
	if len(b.bids) > b.cfg.SideCapacity {
		b.bids = b.bids[:b.cfg.SideCapacity]
	}
	if len(b.asks) > b.cfg.SideCapacity {
		b.asks = b.asks[:b.cfg.SideCapacity]
	}
	return nil
}

// FillBest executes a market fill against the best resting order of the given
// side (SideBuy hits the bids, SideSell hits the asks). The best order's
// quantity is reduced by qty, floored at zero, and the order is removed once
// exhausted. Returns the pre-fill best price.
func (b *Book) FillBest(side models.Side, qty float64) (float64, error) {
	if qty <= 0 {
		return 0, errors.ErrInvalidQuantity
	}

	var levels *[]models.Order
	if side == models.SideBuy {
		levels = &b.bids
	} else {
		levels = &b.asks
	}

	if len(*levels) == 0 {
		return 0, errors.ErrEmptyBook
	}

	best := &(*levels)[0]
	price := best.Price
	best.Quantity -= qty
	if best.Quantity <= 0 {
		*levels = (*levels)[1:]
	}
	return price, nil
}

// BestBid returns the highest resting bid.
func (b *Book) BestBid() (models.Order, bool) {
	if len(b.bids) == 0 {
		return models.Order{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the lowest resting ask.
func (b *Book) BestAsk() (models.Order, bool) {
	if len(b.asks) == 0 {
		return models.Order{}, false
	}
	return b.asks[0], true
}

// Depth returns the number of resting orders on each side.
func (b *Book) Depth() (bids, asks int) {
	return len(b.bids), len(b.asks)
}

// Snapshot returns a copy of the top depth levels of each side.
// A non-positive depth copies both sides in full.
func (b *Book) Snapshot(depth int) models.BookSnapshot {
	copySide := func(side []models.Order) []models.Order {
		n := len(side)
		if depth > 0 && depth < n {
			n = depth
		}
		out := make([]models.Order, n)
		copy(out, side[:n])
		return out
	}
	return models.BookSnapshot{
		Bids: copySide(b.bids),
		Asks: copySide(b.asks),
	}
}

func (b *Book) sortSides() {
	sort.SliceStable(b.bids, func(i, j int) bool {
		return b.bids[i].Price > b.bids[j].Price
	})
	sort.SliceStable(b.asks, func(i, j int) bool {
		return b.asks[i].Price < b.asks[j].Price
	})
}
