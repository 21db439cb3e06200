package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader replays results in order, then blocks until ctx is done.
type scriptedReader struct {
	mu      sync.Mutex
	results []readResult
}

type readResult struct {
	msg kafka.Message
	err error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.results) > 0 {
		next := r.results[0]
		r.results = r.results[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) Close() error { return nil }

func TestConsumerDeliversDecodedEvents(t *testing.T) {
	reader := &scriptedReader{results: []readResult{
		{msg: kafka.Message{Topic: "t.paid", Value: []byte(`{"type":"order.paid","order_id":"o-1","payment_status":"paid"}`)}},
		{msg: kafka.Message{Topic: "t.paid", Value: []byte(`not json`)}},
		{err: errors.New("broker hiccup")},
		{msg: kafka.Message{Topic: "t.scanned", Value: []byte(`{"type":"ticket.scanned","order_id":"o-2"}`)}},
	}}
	c := &Consumer{Reader: reader, Logger: logger.NewStdout(), retryDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var got []models.OrderEvent
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(_ context.Context, e models.OrderEvent) {
			mu.Lock()
			got = append(got, e)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, models.EventOrderPaid, got[0].Type)
	assert.Equal(t, models.PaymentPaid, got[0].PaymentStatus)
	assert.Equal(t, "o-2", got[1].OrderID)
}

func TestConsumerStopsOnClosedReader(t *testing.T) {
	reader := &scriptedReader{results: []readResult{{err: io.EOF}}}
	c := &Consumer{Reader: reader, Logger: logger.NewStdout(), retryDelay: time.Millisecond}

	err := c.Run(context.Background(), func(context.Context, models.OrderEvent) {
		t.Fatal("no events expected")
	})
	assert.NoError(t, err)
}
