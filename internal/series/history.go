// Package series implements the price history ring and the candle aggregation
// pipeline.
package series

import (
	"market-simulator/internal/models"
)

// DefaultHistoryCapacity is the number of raw price samples retained.
const DefaultHistoryCapacity = 100

// History is a bounded, time-ordered ring of raw price samples. Appending
// beyond capacity evicts the oldest sample.
type History struct {
	capacity int
	points   []models.PricePoint
}

// NewHistory creates an empty price history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		capacity: capacity,
		points:   make([]models.PricePoint, 0, capacity),
	}
}

// Append records a price sample, evicting the oldest if at capacity.
func (h *History) Append(point models.PricePoint) {
	if len(h.points) == h.capacity {
		copy(h.points, h.points[1:])
		h.points = h.points[:len(h.points)-1]
	}
	h.points = append(h.points, point)
}

// Len returns the number of retained samples.
func (h *History) Len() int {
	return len(h.points)
}

// Points returns a copy of the retained samples, oldest first.
func (h *History) Points() []models.PricePoint {
	out := make([]models.PricePoint, len(h.points))
	copy(out, h.points)
	return out
}

// Last returns the most recent sample, or false if the history is empty.
func (h *History) Last() (models.PricePoint, bool) {
	if len(h.points) == 0 {
		return models.PricePoint{}, false
	}
	return h.points[len(h.points)-1], true
}
