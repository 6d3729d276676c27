// Package sim implements the simulation engine: it drives the random trader
// activity against the order book, feeds the trade tape and the candle
// aggregator, and applies manual trade commands to the ledger.
package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-simulator/internal/book"
	"market-simulator/internal/config"
	simerrors "market-simulator/internal/errors"
	"market-simulator/internal/ledger"
	"market-simulator/internal/models"
	"market-simulator/internal/series"
	"market-simulator/internal/store"
	"market-simulator/internal/stream"
	"market-simulator/internal/tape"
)

// EngineConfig holds the dependencies and parameters for an Engine.
type EngineConfig struct {
	Simulation config.SimulationConfig
	Engine     config.EngineConfig
	Logger     zerolog.Logger
	Clock      Clock
	Rand       *rand.Rand
	Recorder   store.Recorder
	Hub        *stream.Hub
}

// Engine owns all mutable simulation state. Every mutation (the two tick
// loops, manual trade commands, and parameter changes) is serialized through
// a single mutex; snapshot accessors copy state out under the same lock.
//
// The aggregation loop runs from construction until Close so the price
// history keeps advancing while trading is paused. The market loop runs only
// between Start and Stop.
type Engine struct {
	logger   zerolog.Logger
	clock    Clock
	recorder store.Recorder
	hub      *stream.Hub

	marketPeriodBase      time.Duration
	aggregationPeriodBase time.Duration
	bookDepth             int

	mu           sync.Mutex
	rng          *rand.Rand
	book         *book.Book
	tape         *tape.Tape
	agg          *series.Aggregator
	ledger       *ledger.Ledger
	currentPrice float64
	speed        int
	interval     models.Interval
	running      bool
	closed       bool
	stopMarket   chan struct{}

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewEngine creates an engine seeded around the configured initial price and
// starts its aggregation loop.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Rand == nil {
		seed := cfg.Simulation.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		cfg.Rand = rand.New(rand.NewSource(seed))
	}
	if cfg.Recorder == nil {
		cfg.Recorder = store.NopRecorder{}
	}
	if cfg.Hub == nil {
		cfg.Hub = stream.NewHub()
	}
	if cfg.Simulation.Speed == 0 {
		cfg.Simulation.Speed = 1
	}
	if cfg.Simulation.Interval == "" {
		cfg.Simulation.Interval = string(models.Interval1m)
	}
	defaults := config.Default().Engine
	if cfg.Engine.MarketTickPeriod <= 0 {
		cfg.Engine.MarketTickPeriod = defaults.MarketTickPeriod
	}
	if cfg.Engine.AggregationTickPeriod <= 0 {
		cfg.Engine.AggregationTickPeriod = defaults.AggregationTickPeriod
	}
	if cfg.Engine.BookDepth <= 0 {
		cfg.Engine.BookDepth = defaults.BookDepth
	}

	e := &Engine{
		logger:                cfg.Logger,
		clock:                 cfg.Clock,
		recorder:              cfg.Recorder,
		hub:                   cfg.Hub,
		marketPeriodBase:      cfg.Engine.MarketTickPeriod,
		aggregationPeriodBase: cfg.Engine.AggregationTickPeriod,
		bookDepth:             cfg.Engine.BookDepth,
		rng:                   cfg.Rand,
		tape:                  tape.New(cfg.Engine.TapeCapacity),
		ledger:                ledger.New(cfg.Simulation.InitialBalance),
		currentPrice:          cfg.Simulation.InitialPrice,
		speed:                 cfg.Simulation.Speed,
		interval:              models.Interval(cfg.Simulation.Interval),
		closeCh:               make(chan struct{}),
	}
	e.book = book.New(book.Config{
		SeedDepth:    cfg.Engine.BookDepth,
		SideCapacity: cfg.Engine.BookSideCapacity,
	}, e.rng, e.clock.Now)
	e.agg = series.NewAggregator(e.rng, cfg.Engine.HistoryCapacity, cfg.Engine.CandleCapacity,
		e.interval, e.speed)

	e.book.Seed(e.currentPrice)

	e.wg.Add(1)
	go e.aggregationLoop()

	return e
}

// Start begins the market tick loop. It is idempotent while running.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return simerrors.ErrEngineClosed
	}
	if e.running {
		return nil
	}
	e.running = true
	e.stopMarket = make(chan struct{})
	e.wg.Add(1)
	go e.marketLoop(e.stopMarket)

	e.logger.Info().Float64("price", e.currentPrice).Int("speed", e.speed).
		Msg("Simulation started")
	return nil
}

// Stop halts the market tick loop. All state remains queryable, and the
// aggregation loop keeps running. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopMarket)
	e.stopMarket = nil
	e.mu.Unlock()

	e.logger.Info().Msg("Simulation stopped")
}

// Close stops both loops, flushes the candle series to the session journal,
// and closes the stream hub. The engine cannot be restarted after Close.
func (e *Engine) Close() error {
	e.Stop()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	candles := e.agg.Candles()
	interval := e.interval
	e.mu.Unlock()

	close(e.closeCh)
	e.wg.Wait()

	if err := e.recorder.RecordCandles(context.Background(), interval, candles); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to flush candles to journal")
	}
	e.hub.Close()
	return e.recorder.Close()
}

// Running reports whether the market tick loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Hub returns the stream hub publishing trade ticks.
func (e *Engine) Hub() *stream.Hub {
	return e.hub
}

func (e *Engine) marketLoop(stop chan struct{}) {
	defer e.wg.Done()

	timer := time.NewTimer(e.marketPeriod())
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-e.closeCh:
			return
		case <-timer.C:
			e.MarketTick()
			// Re-read the period so speed changes apply on the next
			// tick schedule, never mid-tick.
			timer.Reset(e.marketPeriod())
		}
	}
}

func (e *Engine) aggregationLoop() {
	defer e.wg.Done()

	timer := time.NewTimer(e.aggregationPeriod())
	defer timer.Stop()
	for {
		select {
		case <-e.closeCh:
			return
		case <-timer.C:
			e.AggregationTick()
			timer.Reset(e.aggregationPeriod())
		}
	}
}

func (e *Engine) marketPeriod() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marketPeriodBase / time.Duration(e.speed)
}

func (e *Engine) aggregationPeriod() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aggregationPeriodBase / time.Duration(e.speed)
}
