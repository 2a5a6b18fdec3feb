package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lendit/internal/app/commands"
	"lendit/internal/clock"
)

// IdempotentCommand is a command the client may retry under one key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer the stored result decodes into.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	Payload     []byte
	OccurredAt  time.Time
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type IdempotencyOptions struct {
	Clock clock.Clock
	TTL   time.Duration
}

var (
	// ErrIdempotencyKeyReused is returned when a key comes back with a
	// different request body.
	ErrIdempotencyKeyReused = errors.New("middleware: idempotency key reused with a different request")
	errMissingPrototype     = errors.New("middleware: idempotent command requires result prototype")
)

const defaultIdempotencyTTL = 24 * time.Hour

// Idempotency returns the stored result when a command arrives again with
// the same key and body. Only successful results are stored, so a failed
// attempt can be retried.
func Idempotency(store IdempotencyStore, opts IdempotencyOptions) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	clk := clock.OrSystem(opts.Clock)
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ic, ok := cmd.(IdempotentCommand)
			if !ok || ic.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := scopedKey(ic)
			fingerprint, err := fingerprintOf(cmd)
			if err != nil {
				return nil, err
			}
			now := clk.Now().UTC()

			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found && (rec.ExpiresAt.IsZero() || now.Before(rec.ExpiresAt)) {
				if rec.Fingerprint != "" && rec.Fingerprint != fingerprint {
					return nil, ErrIdempotencyKeyReused
				}
				return replay(ic, rec.Payload)
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("encode idempotent result: %w", err)
			}
			err = store.Save(ctx, IdempotencyRecord{
				Key:         key,
				Fingerprint: fingerprint,
				Payload:     payload,
				OccurredAt:  now,
				ExpiresAt:   now.Add(ttl),
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replay(cmd IdempotentCommand, payload []byte) (any, error) {
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := json.Unmarshal(payload, proto); err != nil {
		return nil, fmt.Errorf("decode idempotent result: %w", err)
	}
	return proto, nil
}

// scopedKey keeps keys from different commands and users apart.
func scopedKey(cmd IdempotentCommand) string {
	scope := cmd.Key()
	if actor, ok := cmd.(commands.ActorCommand); ok && actor.Actor() != "" {
		scope += ":" + actor.Actor()
	}
	return scope + ":" + cmd.IdempotencyKey()
}

func fingerprintOf(cmd commands.Command) (string, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("fingerprint command: %w", err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
