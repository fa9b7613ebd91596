// Package service holds application services shared by handlers, starting
// with publishing domain events to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/club-event-ticketing/internal/queue"
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// PublishMetrics is notified of messages that could not be published.
type PublishMetrics interface {
	PublishFailed(queue string)
}

// Publisher publishes JSON messages to durable queues over one long-lived
// connection.  The connection is dialled lazily and re-dialled when the
// broker drops it.  Messages are persistent.
type Publisher struct {
	url     string
	logger  *slog.Logger
	metrics PublishMetrics

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	closed   bool
}

func NewPublisher(url string, logger *slog.Logger, metrics PublishMetrics) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, logger: logger, metrics: metrics}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.conn, p.ch, p.declared = conn, ch, make(map[string]bool)
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch, p.declared = nil, nil, nil
}

// PublishJSON marshals v and publishes it to queueName, declaring the
// queue (durable) the first time it is used on a connection.
func (p *Publisher) PublishJSON(ctx context.Context, queueName string, v any) error {
	err := p.publish(ctx, queueName, v)
	if err != nil {
		p.logger.ErrorContext(ctx, "rabbitmq: publish failed", "queue", queueName, "error", err)
		if p.metrics != nil {
			p.metrics.PublishFailed(queueName)
		}
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	if !p.declared[queueName] {
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("queue declare: %w", err)
		}
		p.declared[queueName] = true
	}
	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishBookingConfirmed publishes ev to the booking.confirmed queue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return p.PublishJSON(ctx, queue.BookingConfirmedQueue, ev)
}

// SendCode queues a verification code for delivery by the notification
// worker.
func (p *Publisher) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	return p.PublishJSON(ctx, queue.OTPRequestedQueue, queue.OTPRequestedEvent{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
	})
}

// Close closes the connection.  Further publishes fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}
