package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"amazon-scraper/utils"
)

//go:generate mockery --name Publisher --filename publisher.go

// Publisher is RabbitMQ messages publisher.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message []byte) error
}

// RabbitMQ publishes amqp messages to one exchange.
type RabbitMQ struct {
	channel  *amqp.Channel
	exchange string
}

// NewRabbitMQ opens a channel and declares the durable topic exchange.
func NewRabbitMQ(connection *amqp.Connection, exchange string) (*RabbitMQ, error) {
	channel, err := connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("can't open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("can't declare exchange %q: %w", exchange, err)
	}
	return &RabbitMQ{channel: channel, exchange: exchange}, nil
}

// Publish publishes message to routing key.
func (mq *RabbitMQ) Publish(ctx context.Context, routingKey string, message []byte) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         message,
	}

	return mq.channel.PublishWithContext(
		ctx,
		mq.exchange,
		routingKey,
		false,
		false,
		msg,
	)
}

func (mq *RabbitMQ) Close() error {
	return mq.channel.Close()
}

// FailureEvent is the JSON body of a failure alert.
type FailureEvent struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Frequency  string    `json:"frequency"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AMQPNotifier publishes failure events for downstream alerting.
type AMQPNotifier struct {
	publisher  Publisher
	routingKey string
	clock      utils.Clock
}

func NewAMQPNotifier(publisher Publisher, routingKey string, clock utils.Clock) *AMQPNotifier {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &AMQPNotifier{publisher: publisher, routingKey: routingKey, clock: clock}
}

func (n *AMQPNotifier) NotifyFailure(ctx context.Context, message, frequency string) error {
	now := n.clock.Now()
	body, err := json.Marshal(FailureEvent{
		ID:         uuid.NewString(),
		Subject:    FailureSubject(frequency, now),
		Frequency:  frequency,
		Error:      message,
		OccurredAt: now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("can't marshal failure event: %w", err)
	}
	if err := n.publisher.Publish(ctx, n.routingKey, body); err != nil {
		return fmt.Errorf("can't publish failure event: %w", err)
	}
	return nil
}
