package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billister-api/pkg/events"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// Publisher hands match events to the push delivery pipeline.
type Publisher interface {
	Publish(ctx context.Context, event events.SavedSearchMatched) error
}

// AMQPConfig describes the exchange match events are published to.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// AMQPPublisher publishes match events as persistent JSON messages.
type AMQPPublisher struct {
	cfg  AMQPConfig
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange.
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp publisher: url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "billister.events"
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = events.TypeSavedSearchMatched
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp publisher: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp publisher: declare exchange %q: %w", cfg.Exchange, err)
	}
	return &AMQPPublisher{cfg: cfg, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event events.SavedSearchMatched) error {
	if p.ch == nil || p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("amqp publisher: not connected")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("amqp publisher: marshal event %s: %w", event.EventID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    event.EventID.String(),
		Type:         event.Type,
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.ch.PublishWithContext(publishCtx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("amqp publisher: publish event %s: %w", event.EventID, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
