// Package rabbitmq publishes purchase events to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-engine/config"
	"marketplace-engine/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// EventPurchaseCompleted is the message type of a committed purchase line.
const EventPurchaseCompleted = "purchase.completed"

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection is the subset of *amqp.Connection the publisher uses.
type Connection interface {
	IsClosed() bool
	Close() error
}

// Publisher implements ports.EventPublisher.
type Publisher struct {
	conn       Connection
	ch         Channel
	exchange   string
	routingKey string
	log        zerolog.Logger
}

// PurchaseEvent is the message body.
type PurchaseEvent struct {
	Type       string                `json:"type"`
	OccurredAt time.Time             `json:"occurred_at"`
	Purchase   domain.PurchaseRecord `json:"purchase"`
}

// Dial connects to the broker and declares the durable topic exchange.
func Dial(cfg config.AMQPConfig, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	p, err := NewPublisher(conn, ch, cfg, log)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	log.Info().
		Str("exchange", cfg.Exchange).
		Str("routing_key", cfg.RoutingKey).
		Msg("RabbitMQ publisher ready")

	return p, nil
}

// NewPublisher declares the exchange on an open channel.
func NewPublisher(conn Connection, ch Channel, cfg config.AMQPConfig, log zerolog.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // delete when unused
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return nil, fmt.Errorf("declaring exchange %s: %w", cfg.Exchange, err)
	}

	routingKey := cfg.RoutingKey
	if routingKey == "" {
		routingKey = EventPurchaseCompleted
	}

	return &Publisher{
		conn:       conn,
		ch:         ch,
		exchange:   cfg.Exchange,
		routingKey: routingKey,
		log:        log,
	}, nil
}

// PublishPurchases sends one persistent message per record. It stops at the
// first failure; records already sent stay sent.
func (p *Publisher) PublishPurchases(ctx context.Context, records []domain.PurchaseRecord) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	for _, rec := range records {
		body, err := json.Marshal(PurchaseEvent{
			Type:       EventPurchaseCompleted,
			OccurredAt: rec.CreatedAt,
			Purchase:   rec,
		})
		if err != nil {
			return fmt.Errorf("encoding purchase event: %w", err)
		}

		msg := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    rec.ID.String(),
			Timestamp:    rec.CreatedAt,
			Type:         EventPurchaseCompleted,
			Body:         body,
		}
		if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
			return fmt.Errorf("publishing purchase %s: %w", rec.ID, err)
		}
	}

	p.log.Debug().Int("count", len(records)).Msg("purchase events published")
	return nil
}

// Ping reports whether the broker connection is still open.
func (p *Publisher) Ping(_ context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Name returns the dependency name.
func (p *Publisher) Name() string {
	return "rabbitmq"
}

// Close shuts the channel and then the connection.
func (p *Publisher) Close() error {
	return errors.Join(p.ch.Close(), p.conn.Close())
}
