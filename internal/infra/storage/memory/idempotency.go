package memory

import (
	"context"
	"sync"
	"time"

	"lendit/internal/app/middleware"
	"lendit/internal/clock"
)

type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]middleware.IdempotencyRecord
	clock   clock.Clock
}

func NewIdempotencyStore(clk clock.Clock) *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]middleware.IdempotencyRecord), clock: clock.OrSystem(clk)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
	return nil
}

// Purge drops records past their ExpiresAt.
func (s *IdempotencyStore) Purge(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.records {
		if expired(rec, now) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

func expired(rec middleware.IdempotencyRecord, now time.Time) bool {
	return !rec.ExpiresAt.IsZero() && !now.Before(rec.ExpiresAt)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
