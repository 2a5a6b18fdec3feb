package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	"lendit/internal/app/outbox"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	domainbooking "lendit/internal/domain/booking"
)

const settlePaymentKey = "booking.settle_payment"

const (
	PaymentOutcomePaid   = "paid"
	PaymentOutcomeFailed = "failed"
)

var ErrUnknownPaymentOutcome = errors.New("booking: unknown payment outcome")

// SettlePaymentCommand carries the result of a payment attempt reported by the
// payments service.
type SettlePaymentCommand struct {
	BookingID string `validate:"required"`
	Outcome   string `validate:"required"`
	Reference string
	Reason    string
}

func (c SettlePaymentCommand) Key() string { return settlePaymentKey }

type SettlePaymentHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Handle records the payment outcome. A successful capture also confirms a
// pending booking.
func (h *SettlePaymentHandler) Handle(ctx context.Context, cmd SettlePaymentCommand) (*dto.Booking, error) {
	outcome := strings.ToLower(strings.TrimSpace(cmd.Outcome))
	if outcome != PaymentOutcomePaid && outcome != PaymentOutcomeFailed {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentOutcome, cmd.Outcome)
	}
	now := clock.OrSystem(h.Clock).Now()

	var settled *domainbooking.Booking
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
		if err != nil {
			return err
		}
		switch outcome {
		case PaymentOutcomePaid:
			if err := b.MarkPaid(cmd.Reference, now); err != nil {
				return err
			}
			if b.Status == domainbooking.StatusPending {
				if err := b.Confirm(now); err != nil {
					return err
				}
			}
		case PaymentOutcomeFailed:
			if err := b.MarkPaymentFailed(cmd.Reason, now); err != nil {
				return err
			}
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := outbox.Record(ctx, h.Outbox, h.Encoder, b); err != nil {
			return err
		}
		settled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("payment settled", "booking_id", settled.ID, "outcome", outcome, "status", settled.Status)
	}
	out := dto.MapBooking(settled)
	return &out, nil
}

var _ commands.Handler[SettlePaymentCommand, *dto.Booking] = (*SettlePaymentHandler)(nil)
