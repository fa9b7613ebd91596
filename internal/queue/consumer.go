package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer listens to the notification queues and hands each message to a
// Notifier.  Run keeps a reconnect loop alive until its context ends.
type Consumer struct {
	url      string
	notifier Notifier
	logger   *slog.Logger
	prefetch int
}

func NewConsumer(url string, notifier Notifier, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{url: url, notifier: notifier, logger: logger, prefetch: 50}
}

// Run dials the broker, consumes until the connection drops, and
// reconnects with exponential backoff capped at 30s.  It returns
// ctx.Err() once ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("notification consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("notification consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.Warn("notification consumer: set QoS failed", "error", err)
	}

	bookings, err := declareAndConsume(ctx, ch, BookingConfirmedQueue)
	if err != nil {
		return err
	}
	otps, err := declareAndConsume(ctx, ch, OTPRequestedQueue)
	if err != nil {
		return err
	}
	c.logger.Info("notification consumer: listening", "queues", []string{BookingConfirmedQueue, OTPRequestedQueue})

	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-bookings:
			queue = BookingConfirmedQueue
		case d, ok = <-otps:
			queue = OTPRequestedQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handle(ctx, queue, d.Body); err != nil {
			c.logger.Error("notification consumer: handle message failed", "queue", queue, "error", err)
			_ = d.Nack(false, false) // do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func declareAndConsume(ctx context.Context, ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

// handle decodes one message body and dispatches it by queue.
func (c *Consumer) handle(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case BookingConfirmedQueue:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.BookingID == "" {
			return errors.New("booking_id is missing")
		}
		return c.notifier.BookingConfirmed(ctx, ev)
	case OTPRequestedQueue:
		var ev OTPRequestedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.Email == "" {
			return errors.New("email is missing")
		}
		return c.notifier.OTPRequested(ctx, ev)
	}
	return fmt.Errorf("unknown queue %q", queue)
}
