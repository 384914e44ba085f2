package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitMQPublisher publishes events to a durable queue on the default exchange.
type RabbitMQPublisher struct {
	mu      sync.Mutex // amqp.Channel is not safe for concurrent publishing
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *zap.Logger
}

// NewRabbitMQPublisher dials url, opens a channel and declares queue.
func NewRabbitMQPublisher(url, queue string, log *zap.Logger) (*RabbitMQPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	log.Info("Connected to RabbitMQ", zap.String("queue", q.Name))
	return &RabbitMQPublisher{conn: conn, channel: ch, queue: q.Name, log: log}, nil
}

// Publish sends e as a persistent JSON message.
func (p *RabbitMQPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", e.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         e.Type,
			Timestamp:    e.OccurredAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		p.log.Warn("Failed to publish event", zap.String("type", e.Type), zap.String("queue", p.queue), zap.Error(err))
		return fmt.Errorf("failed to publish %s to queue %s: %w", e.Type, p.queue, err)
	}
	p.log.Debug("Published event", zap.String("type", e.Type), zap.String("userId", e.UserID))
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("Error closing RabbitMQ channel", zap.Error(err))
			lastErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.log.Warn("Error closing RabbitMQ connection", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
