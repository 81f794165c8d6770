// Package notify publishes order events for the mailer and other
// downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const DefaultTopic = "order-events"

type Event struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	TotalAmount int64     `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewEvent(order domain.Order, event string) Event {
	return Event{
		Event:       event,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Email:       order.Customer.Email,
		FullName:    order.Customer.FullName,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	}
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// KafkaNotifier writes one message per event, keyed by order id so events
// for an order stay ordered. Writes go through a circuit breaker so a dead
// broker fails fast instead of holding goroutines for the full timeout.
type KafkaNotifier struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

func NewKafkaNotifier(writer MessageWriter, breaker circuitbreaker.Config, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer:  writer,
		breaker: circuitbreaker.New[struct{}](breaker, logger),
		logger:  logger,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, order domain.Order, event string) error {
	payload, err := json.Marshal(NewEvent(order, event))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event)},
		},
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event, err)
	}

	n.logger.Debug("order event published", zap.String("event", event), zap.String("order_id", order.ID))
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier only logs events. It stands in when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, order domain.Order, event string) error {
	n.logger.Info("order event",
		zap.String("event", event),
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber))
	return nil
}
