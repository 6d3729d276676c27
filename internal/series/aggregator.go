package series

import (
	"math/rand"
	"time"

	"market-simulator/internal/models"
)

// Aggregator consumes reference-price updates and maintains both the raw
// price history and the candle series. One Observe call per aggregation tick.
type Aggregator struct {
	rng     *rand.Rand
	history *History
	candles *CandleSeries

	interval models.Interval
	speed    int
}

// NewAggregator creates an aggregator with the given capacities, interval,
// and speed multiplier.
func NewAggregator(rng *rand.Rand, historyCapacity, candleCapacity int, interval models.Interval, speed int) *Aggregator {
	if speed <= 0 {
		speed = 1
	}
	return &Aggregator{
		rng:      rng,
		history:  NewHistory(historyCapacity),
		candles:  NewCandleSeries(candleCapacity),
		interval: interval,
		speed:    speed,
	}
}

// BucketWidth returns the current candle bucket width: the interval
// granularity compressed by the speed multiplier.
func (a *Aggregator) BucketWidth() time.Duration {
	return a.interval.Granularity() / time.Duration(a.speed)
}

// SetInterval changes the candle interval. The next Observe re-buckets
// existing candles under the new width.
func (a *Aggregator) SetInterval(interval models.Interval) {
	a.interval = interval
}

// SetSpeed changes the speed multiplier. The next Observe re-buckets existing
// candles under the new width.
func (a *Aggregator) SetSpeed(speed int) {
	if speed > 0 {
		a.speed = speed
	}
}

// Observe records one reference-price sample: appends a raw price point with
// a random volume in [0, 100), re-buckets the candle series under the current
// width, and folds the price into the bucket for now. Extending an existing
// bucket adds a volume increment in [0, 10); a fresh bucket starts with a
// volume in [0, 100).
func (a *Aggregator) Observe(now time.Time, price float64) {
	a.history.Append(models.PricePoint{
		Timestamp: now,
		Price:     price,
		Volume:    a.rng.Float64() * 100,
	})

	width := a.BucketWidth()
	a.candles.Rebucket(width)

	volume := a.rng.Float64() * 100
	if a.candles.HasBucket(now, width) {
		volume = a.rng.Float64() * 10
	}
	a.candles.Fold(now, price, volume, width)
}

// History returns a copy of the raw price samples, oldest first.
func (a *Aggregator) History() []models.PricePoint {
	return a.history.Points()
}

// Candles returns a copy of the candle series, oldest first.
func (a *Aggregator) Candles() []models.Candle {
	return a.candles.Candles()
}
