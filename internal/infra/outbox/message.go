package outbox

import (
	"context"
	"errors"
	"time"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// Message is an outbox record as seen by the relay worker.
type Message struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Store is the relay side of an outbox: claim one due record, then settle it.
// Records claimed longer than claimTTL ago count as abandoned and may be reclaimed.
type Store interface {
	Claim(ctx context.Context, workerID string, now time.Time, claimTTL time.Duration) (*Message, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")
