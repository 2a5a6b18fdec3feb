package booking

import (
	"context"
	"strings"

	"lendit/internal/app/dto"
	"lendit/internal/app/queries"
	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	BookingID string `validate:"required"`
	ActorID   string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) Actor() string { return q.ActorID }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns the booking to its borrower or lender only.
func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, release, err := uow.Open(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Booking{}, err
	}
	defer release()
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(strings.TrimSpace(q.BookingID)))
	if err != nil {
		return dto.Booking{}, err
	}
	if !b.IsParty(q.ActorID) {
		return dto.Booking{}, domainbooking.ErrForbidden
	}
	return dto.MapBooking(b), nil
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
