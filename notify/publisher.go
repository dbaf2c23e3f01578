// Package notify delivers workflow domain events to external
// collaborators. The engine writes events through the store's outbox; this
// package drains the outbox to a RabbitMQ exchange and also offers a direct
// publisher for in-process wiring.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"internflow/document"
)

const defaultQueue = "internship_events"

// AMQPPublisher implements document.Dispatcher over a RabbitMQ queue.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

// NewAMQPPublisher dials the broker and declares a durable event queue.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}

	q, err := ch.QueueDeclare(defaultQueue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("notify: declare queue: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, queue: q}, nil
}

// Publish sends one domain event. Callers treat delivery as
// fire-and-forget; a returned error only means the local publish failed.
func (p *AMQPPublisher) Publish(ctx context.Context, ev document.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	return p.channel.PublishWithContext(ctx,
		"",           // default exchange
		p.queue.Name, // routing key
		false,
		false,
		amqpPublishing(document.OutboxTopicStatusChanged, body),
	)
}

func amqpPublishing(topic string, body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType: "application/json",
		Type:        topic,
		Body:        body,
	}
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
