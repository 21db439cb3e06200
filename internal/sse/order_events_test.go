package sse

import (
	"context"
	"testing"
	"time"

	"dinner-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	e := NewOrderEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := e.Subscribe(ctx)
	b := e.Subscribe(ctx)
	assert.Equal(t, 2, e.ClientCount())

	e.PublishOrderEvent(ctx, models.OrderEvent{Type: models.EventOrderPaid, OrderID: "o-1"})

	for _, ch := range []<-chan models.OrderEvent{a, b} {
		select {
		case got := <-ch:
			assert.Equal(t, models.EventOrderPaid, got.Type)
			assert.Equal(t, "o-1", got.OrderID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestCancelClosesSubscription(t *testing.T) {
	e := NewOrderEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	ch := e.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Equal(t, 0, e.ClientCount())

	// publishing after removal must not panic
	e.PublishOrderEvent(context.Background(), models.OrderEvent{Type: models.EventOrderCreated})
}

func TestSlowClientDropsEvents(t *testing.T) {
	e := NewOrderEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := e.Subscribe(ctx)

	for i := 0; i < clientBuffer+5; i++ {
		e.PublishOrderEvent(ctx, models.OrderEvent{Type: models.EventOrderCreated})
	}
	require.Len(t, ch, clientBuffer)
}
