package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "lendit/internal/app/outbox"
	infraoutbox "lendit/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     string
	attempts  int
	next      time.Time
	claimedAt time.Time
	lastError string
}

// Outbox keeps event records in insertion order and serves them to the relay worker.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, state: infraoutbox.StateNew})
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string, now time.Time, claimTTL time.Duration) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		due := (e.state == infraoutbox.StateNew || e.state == infraoutbox.StateFailed) && !e.next.After(now)
		stale := e.state == infraoutbox.StateClaimed && !e.claimedAt.After(now.Add(-claimTTL))
		if !due && !stale {
			continue
		}
		e.state = infraoutbox.StateClaimed
		e.claimedAt = now
		return &infraoutbox.Message{
			ID:         e.record.ID,
			Name:       e.record.Name,
			Payload:    e.record.Payload,
			OccurredAt: e.record.OccurredAt,
			Aggregate:  e.record.Aggregate,
			Headers:    e.record.Headers,
			Attempts:   e.attempts,
		}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string, at time.Time) error {
	o.update(id, func(e *outboxEntry) { e.state = infraoutbox.StateSent })
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.update(id, func(e *outboxEntry) {
		e.state = infraoutbox.StateFailed
		e.attempts++
		e.next = next
		e.lastError = errMsg
	})
	return nil
}

// Records returns a snapshot of every record ever added, in order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

// Pending counts records not yet delivered.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if e.state != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

func (o *Outbox) update(id string, fn func(*outboxEntry)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			fn(e)
			return
		}
	}
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
