package booking

import (
	"context"
	"errors"
	"log/slog"

	"lendit/internal/app/commands"
	"lendit/internal/app/outbox"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	domainbooking "lendit/internal/domain/booking"
	"lendit/internal/domain/shared/daterange"
)

const completeElapsedKey = "booking.complete_elapsed"

const defaultCompletionBatch = 100

// CompleteElapsedCommand marks confirmed bookings whose return day has arrived as completed.
type CompleteElapsedCommand struct {
	Limit int
}

func (c CompleteElapsedCommand) Key() string { return completeElapsedKey }

type CompleteElapsedResult struct {
	Completed int `json:"completed"`
}

type CompleteElapsedHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *CompleteElapsedHandler) Handle(ctx context.Context, cmd CompleteElapsedCommand) (CompleteElapsedResult, error) {
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultCompletionBatch
	}
	now := clock.OrSystem(h.Clock).Now()
	cutoff := daterange.StartOfDay(now).AddDate(0, 0, 1)

	var result CompleteElapsedResult
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		due, err := unit.Bookings().ListEndedBefore(ctx, domainbooking.StatusConfirmed, cutoff, limit)
		if err != nil {
			return err
		}
		for _, b := range due {
			if err := b.Complete(now); err != nil {
				continue
			}
			if err := unit.Bookings().Save(ctx, b); err != nil {
				if errors.Is(err, domainbooking.ErrConcurrentUpdate) {
					continue
				}
				return err
			}
			if err := outbox.Record(ctx, h.Outbox, h.Encoder, b); err != nil {
				return err
			}
			result.Completed++
		}
		return nil
	})
	if err != nil {
		return CompleteElapsedResult{}, err
	}
	if h.Logger != nil && result.Completed > 0 {
		h.Logger.Info("elapsed bookings completed", "count", result.Completed)
	}
	return result, nil
}

var _ commands.Handler[CompleteElapsedCommand, CompleteElapsedResult] = (*CompleteElapsedHandler)(nil)
