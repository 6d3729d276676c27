package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-simulator/internal/models"
)

func makeTick(price float64) models.Tick {
	return models.Tick{
		Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Price:     price,
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("a")
	b := h.Subscribe("b")

	h.Publish(makeTick(100.5))

	assert.InDelta(t, 100.5, (<-a).Price, 1e-9)
	assert.InDelta(t, 100.5, (<-b).Price, 1e-9)
}

func TestPublishNeverBlocksOnSlowConsumer(t *testing.T) {
	h := NewHubWithConfig(HubConfig{SubscriberBufferSize: 2})
	ch := h.Subscribe("slow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(makeTick(float64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	published, dropped := h.Stats()
	assert.Equal(t, uint64(10), published)
	assert.Equal(t, uint64(8), dropped)

	// The first two ticks made it through.
	assert.InDelta(t, 0.0, (<-ch).Price, 1e-9)
	assert.InDelta(t, 1.0, (<-ch).Price, 1e-9)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("a")
	h.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe is safe.
	h.Publish(makeTick(1))
}

func TestCloseClosesAllChannelsAndDropsPublishes(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("a")
	b := h.Subscribe("b")

	h.Close()

	_, open := <-a
	require.False(t, open)
	_, open = <-b
	require.False(t, open)

	h.Publish(makeTick(1)) // no panic

	// Subscribing after close yields a closed channel.
	c := h.Subscribe("late")
	_, open = <-c
	assert.False(t, open)
}
