package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned when the broker closes the delivery
// channel, which is how a dropped connection surfaces to a consumer.
var ErrDeliveriesClosed = errors.New("deliveries channel closed")

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PublishInvoicePaid publishes a paid-invoice event.
func (c *Client) PublishInvoicePaid(ctx context.Context, msg *InvoicePaidMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published invoice paid message",
		"card_id", msg.CardID,
		"year", msg.Year,
		"month", msg.Month,
		"total_cents", msg.TotalCents,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishExpenseChanged publishes an expense change notification.
func (c *Client) PublishExpenseChanged(ctx context.Context, msg *ExpenseChangedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published expense changed message",
		"id", msg.ID,
		"kind", msg.Kind,
		"op", msg.Op,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// ConsumeInvoicePaid consumes paid-invoice events with manual acks. Messages
// that fail to decode are rejected without requeue; handler errors requeue.
func (c *Client) ConsumeInvoicePaid(ctx context.Context, handler func(*InvoicePaidMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming invoice paid messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}

			msg, err := InvoicePaidMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"card_id", msg.CardID,
					"year", msg.Year,
					"month", msg.Month)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
			slog.InfoContext(ctx, "Processed invoice paid message",
				"card_id", msg.CardID,
				"year", msg.Year,
				"month", msg.Month)
		}
	}
}

// ConsumeInvoicePaidWithReconnect wraps ConsumeInvoicePaid with redial on
// broken broker connections, backing off exponentially between attempts.
// Returns only on context cancellation or a non-connection error.
func (c *Client) ConsumeInvoicePaidWithReconnect(ctx context.Context, url string, handler func(*InvoicePaidMessage) error) error {
	attempt := 0
	for {
		err := c.ConsumeInvoicePaid(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting",
			"error", err,
			"attempt", attempt,
			"wait", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		next, derr := NewClient(url, c.exchangeName, c.queueName)
		if derr != nil {
			slog.ErrorContext(ctx, "AMQP reconnect failed", "error", derr, "attempt", attempt)
			continue
		}
		c.Close()
		c.conn = next.conn
		c.channel = next.channel
		attempt = 0
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// exponentialBackoff returns the wait before reconnect attempt n, doubling
// from one second and capped at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// isConnectionError reports whether an error looks like a broken broker
// connection worth a reconnect, as opposed to a permanent failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDeliveriesClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection is not open",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
