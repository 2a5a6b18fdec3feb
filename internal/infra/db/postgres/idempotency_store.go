package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lendit/internal/app/middleware"
)

type IdempotencyStore struct {
	conn
}

func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{conn{pool: pool}}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.queryRow(ctx, `SELECT fingerprint, payload, occurred_at, expires_at FROM app_idempotency WHERE key = $1`, key).
		Scan(&rec.Fingerprint, &rec.Payload, &rec.OccurredAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	const stmt = `
INSERT INTO app_idempotency (key, fingerprint, payload, occurred_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key) DO UPDATE SET fingerprint = EXCLUDED.fingerprint, payload = EXCLUDED.payload,
	occurred_at = EXCLUDED.occurred_at, expires_at = EXCLUDED.expires_at`
	_, err := s.exec(ctx, stmt, rec.Key, rec.Fingerprint, rec.Payload, rec.OccurredAt, rec.ExpiresAt)
	return err
}

// Purge deletes expired records.
func (s *IdempotencyStore) Purge(ctx context.Context) (int64, error) {
	tag, err := s.exec(ctx, `DELETE FROM app_idempotency WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
