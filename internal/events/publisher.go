// Package events publishes user lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Jawfish/klink/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishUserCreated(ctx context.Context, event models.UserCreatedEvent) error
	Close() error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishUserCreated(context.Context, models.UserCreatedEvent) error { return nil }
func (NopPublisher) Close() error                                                    { return nil }

type RabbitMQPublisher struct {
	conn   *amqp.Connection
	chn    *amqp.Channel
	queue  string
	mu     sync.Mutex
	logger *zap.Logger
}

const (
	dialAttempts = 3
	dialBackoff  = 3 * time.Second
)

// NewRabbitMQPublisher dials the broker and declares a durable queue.
func NewRabbitMQPublisher(url, queue string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("Could not connect to RabbitMQ", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < dialAttempts {
			time.Sleep(dialBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := chn.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		chn.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	logger.Info("RabbitMQ publisher ready", zap.String("queue", queue))
	return &RabbitMQPublisher{conn: conn, chn: chn, queue: queue, logger: logger}, nil
}

func (p *RabbitMQPublisher) PublishUserCreated(ctx context.Context, event models.UserCreatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.chn.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Type:         "user.created",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.queue, err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.chn.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
