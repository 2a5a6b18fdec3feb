package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// PaymentListener is satisfied by payments.Listener.
type PaymentListener interface {
	HandleMessage(ctx context.Context, fallbackID string, body []byte) error
}

// PaymentsConsumer feeds one payments topic into a PaymentListener through a
// consumer group. Offsets are marked only after the listener accepts a
// message; a failure ends the claim and the message is redelivered after the
// rebalance.
type PaymentsConsumer struct {
	group    sarama.ConsumerGroup
	topic    string
	listener PaymentListener
	logger   *slog.Logger
}

func NewPaymentsConsumer(brokers []string, groupID, topic string, cfg *sarama.Config, listener PaymentListener, logger *slog.Logger) (*PaymentsConsumer, error) {
	if topic == "" {
		return nil, errors.New("kafka: payments topic is required")
	}
	if listener == nil {
		return nil, errors.New("kafka: payment listener is required")
	}
	if cfg == nil {
		cfg = NewConfig(groupID)
	}
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &PaymentsConsumer{group: g, topic: topic, listener: listener, logger: logger}, nil
}

func (c *PaymentsConsumer) Run(ctx context.Context) error {
	handler := claimHandler{listener: c.listener, logger: c.logger}
	for {
		err := c.group.Consume(ctx, []string{c.topic}, handler)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case err != nil:
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		}
	}
}

func (c *PaymentsConsumer) Close() error {
	return c.group.Close()
}

type claimHandler struct {
	listener PaymentListener
	logger   *slog.Logger
}

func (claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.deliver(sess.Context(), msg); err != nil {
			if h.logger != nil {
				h.logger.Error("payment message failed",
					"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			}
			return nil
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (h claimHandler) deliver(ctx context.Context, msg *sarama.ConsumerMessage) error {
	return h.listener.HandleMessage(ctx, messageID(msg), msg.Value)
}

// messageID is the CloudEvents id header when present, else the message
// position, which is stable across redeliveries.
func messageID(msg *sarama.ConsumerMessage) string {
	for _, hdr := range msg.Headers {
		if hdr == nil {
			continue
		}
		switch string(hdr.Key) {
		case "ce-id", "ce_id":
			if len(hdr.Value) > 0 {
				return string(hdr.Value)
			}
		}
	}
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
