package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "lendit/internal/app/outbox"
	"lendit/internal/clock"
	"lendit/internal/infra/outbox"
	"lendit/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type recordingProducer struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

var relayNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func addRecord(t *testing.T, box *memory.Outbox, id, name string) {
	t.Helper()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"booking_id":"b-1"}`),
		OccurredAt: relayNow,
		Aggregate:  "b-1",
	}))
}

func TestWorkerDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "evt-1", "booking.requested")
	addRecord(t, box, "evt-2", "item.listed")
	producer := &recordingProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, TopicPrefix: "lendit.", Clock: clock.NewFixed(relayNow)}

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, box.Pending())

	require.Len(t, producer.sent, 2)
	first := producer.sent[0]
	assert.Equal(t, "lendit.booking.events.v1", first.topic)
	assert.Equal(t, "b-1", first.key)
	assert.Equal(t, "evt-1", first.headers["ce-id"])
	assert.Equal(t, "booking.requested.v1", first.headers["ce-type"])
	assert.Equal(t, "lendit.item.events.v1", producer.sent[1].topic)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &envelope))
	assert.Equal(t, "1.0", envelope["specversion"])
	assert.Equal(t, "app://lendit", envelope["source"])
	assert.Equal(t, map[string]any{"booking_id": "b-1"}, envelope["data"])
}

func TestWorkerBacksOffFailedPublish(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "evt-1", "booking.confirmed")
	producer := &recordingProducer{err: errors.New("broker down")}
	w := &outbox.Worker{
		Store:    box,
		Producer: producer,
		Backoff:  []time.Duration{time.Minute},
		Clock:    clock.NewFixed(relayNow),
	}

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, box.Pending())

	// Not due again until the backoff elapses.
	producer.err = nil
	sent, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, producer.sent)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	err := (&outbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, outbox.ErrWorkerNotConfigured)
}
