// Package stream provides real-time distribution of market ticks to consumers.
package stream

import (
	"sync"
	"time"

	"market-simulator/internal/models"
)

// HubConfig holds configuration for the stream hub.
type HubConfig struct {
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SubscriberBufferSize: 100,
	}
}

// Hub fans out ticks from the simulation engine to multiple subscribers via
// buffered channels. Sends never block: a subscriber whose buffer is full
// drops the tick and its drop counter is incremented.
type Hub struct {
	config HubConfig

	mu          sync.RWMutex
	subscribers []*Subscriber
	closed      bool

	ticksPublished uint64
	ticksDropped   uint64
}

// Subscriber represents a channel subscriber with metadata.
type Subscriber struct {
	ID           string
	Channel      chan models.Tick
	DroppedCount int
	CreatedAt    time.Time
}

// NewHub creates a new stream hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a new stream hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	if config.SubscriberBufferSize <= 0 {
		config.SubscriberBufferSize = DefaultHubConfig().SubscriberBufferSize
	}
	return &Hub{config: config}
}

// Subscribe adds a subscriber and returns a channel to receive ticks.
func (h *Hub) Subscribe(id string) <-chan models.Tick {
	ch := make(chan models.Tick, h.config.SubscriberBufferSize)
	sub := &Subscriber{
		ID:        id,
		Channel:   ch,
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers = append(h.subscribers, sub)
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (h *Hub) Unsubscribe(ch <-chan models.Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subscribers {
		if sub.Channel == ch {
			close(sub.Channel)
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// Publish broadcasts a tick to all subscribers without blocking.
func (h *Hub) Publish(tick models.Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.ticksPublished++
	for _, sub := range h.subscribers {
		select {
		case sub.Channel <- tick:
		default:
			sub.DroppedCount++
			h.ticksDropped++
		}
	}
}

// Close closes all subscriber channels. Further publishes are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subscribers {
		close(sub.Channel)
	}
	h.subscribers = nil
}

// Stats returns the number of ticks published and dropped so far.
func (h *Hub) Stats() (published, dropped uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ticksPublished, h.ticksDropped
}
