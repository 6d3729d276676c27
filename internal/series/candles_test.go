package series

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-simulator/internal/models"
)

var base = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func TestBucketStartQuantizesDown(t *testing.T) {
	width := time.Minute
	ts := base.Add(42 * time.Second)
	assert.Equal(t, base, BucketStart(ts, width))
	assert.Equal(t, base, BucketStart(base, width))
	assert.Equal(t, base.Add(time.Minute), BucketStart(base.Add(61*time.Second), width))
}

func TestFoldCreatesAndExtendsBuckets(t *testing.T) {
	s := NewCandleSeries(100)
	width := time.Minute

	s.Fold(base.Add(5*time.Second), 100, 10, width)
	require.Equal(t, 1, s.Len())

	c := s.Candles()[0]
	assert.Equal(t, base, c.BucketStart)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 100.0, c.Close)

	s.Fold(base.Add(20*time.Second), 105, 2, width)
	s.Fold(base.Add(40*time.Second), 98, 3, width)
	require.Equal(t, 1, s.Len())

	c = s.Candles()[0]
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 105.0, c.High)
	assert.Equal(t, 98.0, c.Low)
	assert.Equal(t, 98.0, c.Close)
	assert.InDelta(t, 15, c.Volume, 1e-9)

	// Next minute starts a fresh bucket.
	s.Fold(base.Add(70*time.Second), 99, 1, width)
	require.Equal(t, 2, s.Len())
}

func TestRebucketMergesIntoWiderBuckets(t *testing.T) {
	s := NewCandleSeries(100)

	// Five one-minute candles.
	prices := []struct{ o, h, l, c float64 }{
		{100, 102, 99, 101},
		{101, 104, 100, 103},
		{103, 103, 97, 98},
		{98, 99, 96, 97},
		{97, 105, 97, 104},
	}
	for i, p := range prices {
		s.candles = append(s.candles, models.Candle{
			BucketStart: base.Add(time.Duration(i) * time.Minute),
			Open:        p.o, High: p.h, Low: p.l, Close: p.c,
			Volume: 10,
		})
	}

	s.Rebucket(5 * time.Minute)
	require.Equal(t, 1, s.Len())

	c := s.Candles()[0]
	assert.Equal(t, base, c.BucketStart)
	assert.Equal(t, 100.0, c.Open)  // first seen
	assert.Equal(t, 104.0, c.Close) // last seen
	assert.Equal(t, 105.0, c.High)
	assert.Equal(t, 96.0, c.Low)
	assert.InDelta(t, 50, c.Volume, 1e-9)
}

func TestRebucketSameWidthIsNoop(t *testing.T) {
	s := NewCandleSeries(100)
	width := time.Minute
	for i := 0; i < 5; i++ {
		s.Fold(base.Add(time.Duration(i)*time.Minute), 100+float64(i), 1, width)
	}

	before := s.Candles()
	s.Rebucket(width)
	assert.Equal(t, before, s.Candles())
}

func TestSeriesTruncatesToCapacity(t *testing.T) {
	s := NewCandleSeries(10)
	width := time.Minute
	for i := 0; i < 25; i++ {
		s.Fold(base.Add(time.Duration(i)*time.Minute), 100, 1, width)
	}

	require.Equal(t, 10, s.Len())
	// Newest buckets retained.
	candles := s.Candles()
	assert.Equal(t, base.Add(15*time.Minute), candles[0].BucketStart)
	assert.Equal(t, base.Add(24*time.Minute), candles[9].BucketStart)
}

func ohlcValid(c models.Candle) bool {
	maxOC := c.Open
	if c.Close > maxOC {
		maxOC = c.Close
	}
	minOC := c.Open
	if c.Close < minOC {
		minOC = c.Close
	}
	return c.High >= maxOC && c.Low <= minOC
}

func strictlyIncreasing(candles []models.Candle) bool {
	for i := 1; i < len(candles); i++ {
		if !candles[i-1].BucketStart.Before(candles[i].BucketStart) {
			return false
		}
	}
	return true
}

// Property: folding any sequence of price samples and re-bucketing at any
// supported width preserves the OHLC invariant and strictly increasing,
// duplicate-free bucket starts; re-bucketing twice at the same width equals
// re-bucketing once.
func TestProperty_RebucketPreservesInvariantsAndIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	widths := []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour}

	properties.Property("rebucket preserves invariants and is idempotent", prop.ForAll(
		func(prices []float64, widthIdx int) bool {
			s := NewCandleSeries(100)
			for i, price := range prices {
				s.Fold(base.Add(time.Duration(i)*30*time.Second), price, 1, time.Minute)
			}

			width := widths[widthIdx]
			s.Rebucket(width)
			once := s.Candles()
			s.Rebucket(width)
			twice := s.Candles()

			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			for _, c := range once {
				if !ohlcValid(c) {
					return false
				}
			}
			return strictlyIncreasing(once)
		},
		gen.SliceOf(gen.Float64Range(50, 150)),
		gen.IntRange(0, len(widths)-1),
	))

	properties.TestingRun(t)
}
