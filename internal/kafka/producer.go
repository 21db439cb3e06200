package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer}
}

// Publish writes one message to topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

const DefaultPublishTimeout = 3 * time.Second

// EventPublisher routes order lifecycle events to their topics. Failures are
// logged and never returned: events are informational.
type EventPublisher struct {
	producer *Producer
	topics   config.TopicConfig
	logger   *logger.Logger
	timeout  time.Duration
}

func NewEventPublisher(producer *Producer, topics config.TopicConfig, log *logger.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, topics: topics, logger: log, timeout: DefaultPublishTimeout}
}

// WithTimeout bounds each publish to d.
func (e *EventPublisher) WithTimeout(d time.Duration) *EventPublisher {
	if d > 0 {
		e.timeout = d
	}
	return e
}

func (e *EventPublisher) topicFor(eventType string) string {
	switch eventType {
	case models.EventOrderCreated:
		return e.topics.OrderCreated
	case models.EventOrderPaid:
		return e.topics.OrderPaid
	case models.EventOrderFailed:
		return e.topics.OrderFailed
	case models.EventTicketScanned:
		return e.topics.TicketScanned
	}
	return ""
}

func (e *EventPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) {
	topic := e.topicFor(event.Type)
	if topic == "" {
		e.logger.Warn("KAFKA", fmt.Sprintf("No topic configured for event type %q", event.Type))
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("KAFKA", fmt.Sprintf("Failed to marshal %s event for %s: %v", event.Type, event.OrderID, err))
		return
	}

	// The request context may already be cancelled by the time we publish.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.producer.Publish(pubCtx, topic, event.OrderID, value); err != nil {
		e.logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for order %s: %v", event.Type, event.OrderID, err))
		return
	}
	e.logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s order=%s", event.Type, event.OrderID))
}
