package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-simulator/internal/config"
	simerrors "market-simulator/internal/errors"
	"market-simulator/internal/models"
)

func newTestEngine(t *testing.T, seed int64) (*Engine, *FixedClock) {
	t.Helper()

	clock := NewFixedClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	cfg := config.Default()
	e := NewEngine(EngineConfig{
		Simulation: config.SimulationConfig{
			InitialPrice:   100,
			InitialBalance: 10000,
			Speed:          1,
			Interval:       string(models.Interval1m),
		},
		Engine: cfg.Engine,
		Logger: zerolog.Nop(),
		Clock:  clock,
		Rand:   rand.New(rand.NewSource(seed)),
	})
	t.Cleanup(func() { _ = e.Close() })
	return e, clock
}

// drainSide empties one side of the book through market fills.
func drainSide(e *Engine, side models.Side) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		if _, err := e.book.FillBest(side, 1e9); err != nil {
			return
		}
	}
}

// pushTrade moves the reference price as if a trade executed at price.
func pushTrade(e *Engine, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyTrade(models.Trade{
		ID:        uuid.NewString(),
		Price:     price,
		Quantity:  1,
		Side:      models.SideBuy,
		Timestamp: e.clock.Now(),
	})
}

func TestEngineSeedsBookAtConstruction(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	snap := e.OrderBook(0)
	require.Len(t, snap.Bids, 10)
	require.Len(t, snap.Asks, 10)

	best, ok := snap.BestAsk()
	require.True(t, ok)
	assert.InDelta(t, 100.5, best.Price, 1e-9)
	assert.InDelta(t, 100.0, e.CurrentPrice(), 1e-9)
}

func TestMarketTickMaintainsInvariants(t *testing.T) {
	e, _ := newTestEngine(t, 42)

	for i := 0; i < 500; i++ {
		e.MarketTick()

		snap := e.OrderBook(0)
		for j := 1; j < len(snap.Bids); j++ {
			assert.Greater(t, snap.Bids[j-1].Price, snap.Bids[j].Price)
		}
		for j := 1; j < len(snap.Asks); j++ {
			assert.Less(t, snap.Asks[j-1].Price, snap.Asks[j].Price)
		}
		assert.LessOrEqual(t, len(snap.Bids), 20)
		assert.LessOrEqual(t, len(snap.Asks), 20)

		trades := e.RecentTrades(0)
		assert.LessOrEqual(t, len(trades), 50)
		if len(trades) > 0 {
			assert.InDelta(t, trades[0].Price, e.CurrentPrice(), 1e-9)
		}
	}
}

func TestMarketTickBuyExecutesAtBestAsk(t *testing.T) {
	e, _ := newTestEngine(t, 7)

	// Drive ticks until the generator produces a buy-side trade, then check
	// it executed at the pre-tick best ask.
	for i := 0; i < 1000; i++ {
		before := e.OrderBook(0)
		seen := len(e.RecentTrades(0))

		e.MarketTick()

		trades := e.RecentTrades(0)
		if len(trades) == seen {
			continue
		}
		trade := trades[0]
		if trade.Side != models.SideBuy {
			continue
		}
		ask, ok := before.BestAsk()
		require.True(t, ok)
		assert.InDelta(t, ask.Price, trade.Price, 1e-9)
		assert.InDelta(t, trade.Price, e.CurrentPrice(), 1e-9)
		assert.GreaterOrEqual(t, trade.Quantity, 1.0)
		assert.Less(t, trade.Quantity, 11.0)
		return
	}
	t.Fatal("no buy-side trade generated in 1000 ticks")
}

func TestOpenLongAtBestAsk(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	pos, err := e.OpenLong(2)
	require.NoError(t, err)

	assert.InDelta(t, 100.5, pos.EntryPrice, 1e-9)
	account := e.Account()
	assert.InDelta(t, 9799.0, account.Cash, 1e-9)
	require.Len(t, account.Positions, 1)

	// Reference-price move marks the position to market.
	pushTrade(e, 105)
	account = e.Account()
	assert.InDelta(t, 9.0, account.Positions[0].UnrealizedPnL, 1e-9)
	assert.InDelta(t, 9.0, account.UnrealizedPnL, 1e-9)
}

func TestClosePositionUsesOppositeBest(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	pos, err := e.OpenLong(2)
	require.NoError(t, err)

	// Raise the best bid to 104 so the close executes there.
	e.mu.Lock()
	err = e.book.InsertLimit(models.Order{Side: models.SideBuy, Price: 104.0, Quantity: 5})
	e.mu.Unlock()
	require.NoError(t, err)

	realized, err := e.ClosePosition(pos.ID)
	require.NoError(t, err)

	assert.InDelta(t, 7.0, realized, 1e-9)
	account := e.Account()
	assert.InDelta(t, 10007.0, account.Cash, 1e-9)
	assert.Empty(t, account.Positions)
}

func TestClosePositionFallsBackToCurrentPrice(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	pos, err := e.OpenLong(2)
	require.NoError(t, err)

	drainSide(e, models.SideBuy)

	realized, err := e.ClosePosition(pos.ID)
	require.NoError(t, err)
	// Close price falls back to currentPrice (100): (100 - 100.5) * 2.
	assert.InDelta(t, -1.0, realized, 1e-9)
}

func TestClosePositionUnknownID(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	_, err := e.ClosePosition("missing")
	assert.ErrorIs(t, err, simerrors.ErrPositionNotFound)
}

func TestOpenShortEmptyBidsRejected(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	drainSide(e, models.SideBuy)

	before := e.Account()
	_, err := e.OpenShort(2)
	assert.ErrorIs(t, err, simerrors.ErrEmptyBook)

	after := e.Account()
	assert.InDelta(t, before.Cash, after.Cash, 1e-9)
	assert.Empty(t, after.Positions)
}

func TestOpenLongEmptyAsksRejected(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	drainSide(e, models.SideSell)

	_, err := e.OpenLong(2)
	assert.ErrorIs(t, err, simerrors.ErrInsufficientFunds)
}

func TestOpenShortCreditsProceedsAtBestBid(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	pos, err := e.OpenShort(2)
	require.NoError(t, err)

	assert.InDelta(t, 99.5, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 10199.0, e.Account().Cash, 1e-9)
}

func TestBuyStopOneShot(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	// Trigger above current price: not met, no position.
	_, err := e.BuyStop(101, 1)
	assert.ErrorIs(t, err, simerrors.ErrStopNotTriggered)
	assert.Empty(t, e.Account().Positions)

	// Trigger at or below current price fires a market buy.
	pos, err := e.BuyStop(100, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PositionLong, pos.Side)
}

func TestSellStopOneShot(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	_, err := e.SellStop(99, 1)
	assert.ErrorIs(t, err, simerrors.ErrStopNotTriggered)

	pos, err := e.SellStop(100, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PositionShort, pos.Side)
}

func TestAggregationTickBuildsSeries(t *testing.T) {
	e, clock := newTestEngine(t, 1)

	for i := 0; i < 5; i++ {
		e.AggregationTick()
		clock.Advance(time.Second)
	}

	history := e.PriceHistory()
	assert.Len(t, history, 5)

	candles := e.Candles()
	require.NotEmpty(t, candles)
	for _, c := range candles {
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
	}
}

func TestSetSpeedAndIntervalValidation(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	require.NoError(t, e.SetSpeed(5))
	assert.Equal(t, 5, e.Speed())
	assert.ErrorIs(t, e.SetSpeed(4), simerrors.ErrConfigInvalid)

	require.NoError(t, e.SetInterval(models.Interval1h))
	assert.Equal(t, models.Interval1h, e.Interval())
	assert.ErrorIs(t, e.SetInterval("2m"), simerrors.ErrConfigInvalid)
}

func TestStartStopLifecycle(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	require.NoError(t, e.Start())
	assert.True(t, e.Running())
	require.NoError(t, e.Start()) // idempotent

	e.Stop()
	assert.False(t, e.Running())
	e.Stop() // idempotent

	// State remains queryable after stop.
	assert.Greater(t, e.CurrentPrice(), 0.0)
	assert.NotEmpty(t, e.OrderBook(0).Bids)

	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Start(), simerrors.ErrEngineClosed)
	require.NoError(t, e.Close()) // idempotent
}

func TestHubPublishesTradeTicks(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	ticks := e.Hub().Subscribe("test")
	pushTrade(e, 101.5)

	select {
	case tick := <-ticks:
		assert.InDelta(t, 101.5, tick.Price, 1e-9)
		require.NotNil(t, tick.Trade)
		assert.InDelta(t, 101.5, tick.Trade.Price, 1e-9)
	default:
		t.Fatal("expected a tick on the hub")
	}
}
