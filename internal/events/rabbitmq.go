package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the subset of *amqp.Channel the publisher needs
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitPublisher publishes JSON events to a durable topic exchange
type RabbitPublisher struct {
	ch       amqpChannel
	exchange string
	conn     *amqp.Connection
}

// DialRabbit connects to the broker and declares the events exchange
func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	p, err := NewRabbitPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewRabbitPublisher declares the exchange on an open channel
func NewRabbitPublisher(ch amqpChannel, exchange string) (*RabbitPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq: declare exchange %s: %w", exchange, err)
	}
	return &RabbitPublisher{ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) PublishWithdrawal(ctx context.Context, event WithdrawalEvent) error {
	return p.publish(ctx, RoutingKeyWithdrawn, event.EventID, event)
}

func (p *RabbitPublisher) PublishResolution(ctx context.Context, event ResolutionEvent) error {
	return p.publish(ctx, RoutingKeyResolved, event.EventID, event)
}

func (p *RabbitPublisher) publish(ctx context.Context, key, messageID string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s event: %w", key, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish to exchange %s: %w", p.exchange, err)
	}
	return nil
}

// Close closes the broker connection opened by DialRabbit
func (p *RabbitPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
