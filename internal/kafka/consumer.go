package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads order lifecycle events back off their topics.
type Consumer struct {
	Reader     MessageReader
	Logger     *logger.Logger
	retryDelay time.Duration
}

// NewConsumer joins groupID on every topic. Each admin feed needs all events,
// so callers give every instance its own group.
func NewConsumer(brokers, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{Reader: reader, Logger: log, retryDelay: time.Second}
}

// Run hands every decoded event to handler until ctx is done or the reader
// is closed. Undecodable messages are skipped.
func (c *Consumer) Run(ctx context.Context, handler func(context.Context, models.OrderEvent)) error {
	c.Logger.Info("KAFKA", "Order event consumer started")
	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.Logger.Info("KAFKA", "Order event consumer stopped")
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading order event: %v", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		var event models.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Skipping undecodable message on %s at offset %d: %v", msg.Topic, msg.Offset, err))
			continue
		}

		c.Logger.LogKafka("CONSUME", msg.Topic, fmt.Sprintf("%s order=%s", event.Type, event.OrderID))
		handler(ctx, event)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.Reader.Close()
}
