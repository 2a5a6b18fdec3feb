package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Inbox records which broker messages a consumer has already applied.
type Inbox struct {
	conn
	consumer string
}

func NewInbox(pool *pgxpool.Pool, consumer string) *Inbox {
	return &Inbox{conn: conn{pool: pool}, consumer: consumer}
}

func (i *Inbox) Processed(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := i.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM app_inbox WHERE consumer = $1 AND event_id = $2)`, i.consumer, eventID).Scan(&seen)
	return seen, err
}

func (i *Inbox) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := i.exec(ctx, `INSERT INTO app_inbox (consumer, event_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, i.consumer, eventID)
	return err
}
