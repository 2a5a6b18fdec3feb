package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrDeliveriesClosed = errors.New("rabbitmq: delivery channel closed")

// DeliveryHandler is satisfied by payments.Listener.
type DeliveryHandler interface {
	HandleMessage(ctx context.Context, fallbackID string, body []byte) error
}

// Consumer reads a durable queue bound to the exchange and acks after the
// handler succeeds. Failed deliveries are requeued.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

func NewConsumer(url, exchange, queue, bindingKey string, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	if err := ch.Qos(16, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, queue: q.Name, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context, handler DeliveryHandler) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}
	if c.logger != nil {
		c.logger.Info("rabbitmq consuming", "queue", c.queue)
	}
	return consume(ctx, msgs, handler, c.logger)
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, handler DeliveryHandler, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			handleDelivery(ctx, d, d.Acknowledger, handler, logger)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, ack amqp.Acknowledger, handler DeliveryHandler, logger *slog.Logger) {
	id := d.MessageId
	if id == "" {
		id = fmt.Sprintf("%s/%d", d.RoutingKey, d.DeliveryTag)
	}
	if err := handler.HandleMessage(ctx, id, d.Body); err != nil {
		if logger != nil {
			logger.Error("rabbitmq delivery failed", "message_id", id, "error", err)
		}
		if ack != nil {
			_ = ack.Nack(d.DeliveryTag, false, true)
		}
		return
	}
	if ack != nil {
		_ = ack.Ack(d.DeliveryTag, false)
	}
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
