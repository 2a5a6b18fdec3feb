package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "lendit/internal/app/outbox"
	"lendit/internal/clock"
	infraoutbox "lendit/internal/infra/outbox"
)

// OutboxStore keeps outbox records in app_outbox. Add joins the transaction in ctx.
type OutboxStore struct {
	conn
	clock clock.Clock
}

func NewOutboxStore(pool *pgxpool.Pool, clk clock.Clock) *OutboxStore {
	return &OutboxStore{conn: conn{pool: pool}, clock: clock.OrSystem(clk)}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers := record.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	now := s.clock.Now().UTC()
	const stmt = `
INSERT INTO app_outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.exec(ctx, stmt,
		record.ID,
		record.Name,
		record.Payload,
		record.OccurredAt,
		record.Aggregate,
		headers,
		infraoutbox.StateNew,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert outbox record: %w", translate(err))
	}
	return nil
}

func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

// Claim picks the oldest due record, skipping rows other relays hold.
func (s *OutboxStore) Claim(ctx context.Context, workerID string, now time.Time, claimTTL time.Duration) (*infraoutbox.Message, error) {
	const stmt = `
UPDATE app_outbox SET state = $1, claimed_by = $2, claimed_at = $3
WHERE id = (
	SELECT id FROM app_outbox
	WHERE (state IN ($4, $5) AND next_attempt_at <= $3)
	   OR (state = $1 AND claimed_at <= $6)
	ORDER BY next_attempt_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`
	var msg infraoutbox.Message
	err := s.queryRow(ctx, stmt,
		infraoutbox.StateClaimed,
		workerID,
		now,
		infraoutbox.StateNew,
		infraoutbox.StateFailed,
		now.Add(-claimTTL),
	).Scan(&msg.ID, &msg.Name, &msg.Payload, &msg.OccurredAt, &msg.Aggregate, &msg.Headers, &msg.Attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim outbox record: %w", err)
	}
	msg.OccurredAt = msg.OccurredAt.UTC()
	return &msg, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.exec(ctx, `UPDATE app_outbox SET state = $2, sent_at = $3 WHERE id = $1`, id, infraoutbox.StateSent, at)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	const stmt = `
UPDATE app_outbox SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
WHERE id = $1`
	_, err := s.exec(ctx, stmt, id, infraoutbox.StateFailed, next, errMsg)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
