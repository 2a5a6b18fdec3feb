package outbox

import (
	"context"
	"log/slog"
)

// LogProducer stands in for a broker when none is configured so the outbox
// still drains.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.Logger != nil {
		p.Logger.Debug("event relayed to log", "topic", topic, "key", key, "event_id", headers["ce-id"], "type", headers["ce-type"], "bytes", len(payload))
	}
	return nil
}
