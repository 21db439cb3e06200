package sse

import (
	"context"
	"sync"

	"dinner-ticketing/internal/models"
)

const clientBuffer = 16

// OrderEventEmitter fans order lifecycle events out to connected dashboard
// clients. It satisfies the order and ticket services' publisher interface.
type OrderEventEmitter struct {
	mu      sync.RWMutex
	clients map[chan models.OrderEvent]struct{}
}

// NewOrderEventEmitter creates a new SSE event emitter for order events
func NewOrderEventEmitter() *OrderEventEmitter {
	return &OrderEventEmitter{
		clients: make(map[chan models.OrderEvent]struct{}),
	}
}

// Subscribe registers a client until ctx is done; the channel is closed then.
func (e *OrderEventEmitter) Subscribe(ctx context.Context) <-chan models.OrderEvent {
	clientChan := make(chan models.OrderEvent, clientBuffer)

	e.mu.Lock()
	e.clients[clientChan] = struct{}{}
	e.mu.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.remove(clientChan)
	}()

	return clientChan
}

// PublishOrderEvent broadcasts event to every subscribed client. Slow clients
// with a full buffer miss the event.
func (e *OrderEventEmitter) PublishOrderEvent(_ context.Context, event models.OrderEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for clientChan := range e.clients {
		select {
		case clientChan <- event:
		default:
		}
	}
}

func (e *OrderEventEmitter) remove(clientChan chan models.OrderEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.clients[clientChan]; ok {
		delete(e.clients, clientChan)
		close(clientChan)
	}
}

// ClientCount returns the number of clients currently subscribed
func (e *OrderEventEmitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}
