package booking

import (
	"context"
	"log/slog"
	"strings"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	"lendit/internal/app/outbox"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	domainbooking "lendit/internal/domain/booking"
)

const updateBookingStatusKey = "booking.update_status"

type UpdateBookingStatusCommand struct {
	BookingID string `validate:"required"`
	Status    string `validate:"required"`
	ActorID   string `validate:"required"`
}

func (c UpdateBookingStatusCommand) Key() string { return updateBookingStatusKey }

func (c UpdateBookingStatusCommand) Actor() string { return c.ActorID }

type UpdateBookingStatusHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *UpdateBookingStatusHandler) Handle(ctx context.Context, cmd UpdateBookingStatusCommand) (*dto.Booking, error) {
	target, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(cmd.ActorID)
	now := clock.OrSystem(h.Clock).Now()

	var updated *domainbooking.Booking
	err = uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
		if err != nil {
			return err
		}
		from := b.Status
		if err := b.Transition(target, actor, now); err != nil {
			if h.Logger != nil {
				h.Logger.Info("booking transition rejected", "booking_id", b.ID, "from", from, "to", target, "actor_id", actor, "error", err)
			}
			return err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := outbox.Record(ctx, h.Outbox, h.Encoder, b); err != nil {
			return err
		}
		if h.Logger != nil {
			h.Logger.Info("booking status updated", "booking_id", b.ID, "from", from, "to", b.Status, "actor_id", actor)
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(updated)
	return &out, nil
}

var _ commands.Handler[UpdateBookingStatusCommand, *dto.Booking] = (*UpdateBookingStatusHandler)(nil)
