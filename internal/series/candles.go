package series

import (
	"sort"
	"time"

	"market-simulator/internal/models"
)

// DefaultCandleCapacity is the number of candle buckets retained.
const DefaultCandleCapacity = 100

// CandleSeries is a bounded, time-ordered collection of OHLCV candles keyed
// by bucket start. It supports live re-quantization: when the bucket width
// changes (interval or speed change), existing candles are merged into their
// new buckets instead of being discarded.
type CandleSeries struct {
	capacity int
	candles  []models.Candle
}

// NewCandleSeries creates an empty candle series with the given capacity.
func NewCandleSeries(capacity int) *CandleSeries {
	if capacity <= 0 {
		capacity = DefaultCandleCapacity
	}
	return &CandleSeries{capacity: capacity}
}

// BucketStart quantizes t down to the start of its bucket of the given width.
func BucketStart(t time.Time, width time.Duration) time.Time {
	ms := t.UnixMilli()
	w := width.Milliseconds()
	if w <= 0 {
		return t
	}
	start := ms - (ms%w+w)%w
	return time.UnixMilli(start).UTC()
}

// Rebucket reassigns every candle to its bucket under the given width and
// merges candles landing in the same bucket: open from the first seen, close
// from the last seen in insertion order, high/low extrema, summed volume.
// Re-bucketing an already-quantized series with the same width is a no-op.
func (s *CandleSeries) Rebucket(width time.Duration) {
	if len(s.candles) == 0 {
		return
	}

	merged := make(map[int64]models.Candle, len(s.candles))
	order := make([]int64, 0, len(s.candles))

	for _, c := range s.candles {
		start := BucketStart(c.BucketStart, width)
		key := start.UnixMilli()
		prev, ok := merged[key]
		if !ok {
			c.BucketStart = start
			merged[key] = c
			order = append(order, key)
			continue
		}
		if c.High > prev.High {
			prev.High = c.High
		}
		if c.Low < prev.Low {
			prev.Low = c.Low
		}
		prev.Close = c.Close
		prev.Volume += c.Volume
		merged[key] = prev
	}

	s.candles = s.candles[:0]
	for _, key := range order {
		s.candles = append(s.candles, merged[key])
	}
	s.finalize()
}

// HasBucket reports whether a candle already exists for t's bucket.
func (s *CandleSeries) HasBucket(t time.Time, width time.Duration) bool {
	start := BucketStart(t, width)
	for i := range s.candles {
		if s.candles[i].BucketStart.Equal(start) {
			return true
		}
	}
	return false
}

// Fold folds a price sample into the bucket for t: an existing bucket's
// high/low/close are extended and its volume incremented, otherwise a fresh
// single-sample bucket is created.
func (s *CandleSeries) Fold(t time.Time, price, volume float64, width time.Duration) {
	start := BucketStart(t, width)
	for i := range s.candles {
		c := &s.candles[i]
		if !c.BucketStart.Equal(start) {
			continue
		}
		if price > c.High {
			c.High = price
		}
		if price < c.Low {
			c.Low = price
		}
		c.Close = price
		c.Volume += volume
		s.finalize()
		return
	}

	s.candles = append(s.candles, models.Candle{
		BucketStart: start,
		Open:        price,
		High:        price,
		Low:         price,
		Close:       price,
		Volume:      volume,
	})
	s.finalize()
}

// Len returns the number of retained candles.
func (s *CandleSeries) Len() int {
	return len(s.candles)
}

// Candles returns a copy of the retained candles, oldest first.
func (s *CandleSeries) Candles() []models.Candle {
	out := make([]models.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// finalize restores the series invariants: ascending bucket order and at most
// capacity candles, newest retained.
func (s *CandleSeries) finalize() {
	sort.SliceStable(s.candles, func(i, j int) bool {
		return s.candles[i].BucketStart.Before(s.candles[j].BucketStart)
	})
	if len(s.candles) > s.capacity {
		s.candles = s.candles[len(s.candles)-s.capacity:]
	}
}
