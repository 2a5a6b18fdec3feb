package booking

import (
	"context"
	"time"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	handleravailability "lendit/internal/app/handlers/availability"
	"lendit/internal/app/middleware"
	domainbooking "lendit/internal/domain/booking"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	ItemID          string    `validate:"required"`
	BorrowerID      string    `validate:"required"`
	StartDate       time.Time `validate:"required"`
	EndDate         time.Time `validate:"required"`
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) Actor() string { return c.BorrowerID }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

// RequestBookingHandler fails fast on an unavailable range, then hands over
// to CreateBookingHandler which repeats the check under the item lock.
type RequestBookingHandler struct {
	Availability *handleravailability.CheckAvailabilityHandler
	Create       *CreateBookingHandler
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	if h.Availability != nil {
		check, err := h.Availability.Handle(ctx, handleravailability.CheckAvailabilityQuery{
			ItemID:    cmd.ItemID,
			StartDate: cmd.StartDate,
			EndDate:   cmd.EndDate,
		})
		if err != nil {
			return nil, err
		}
		if !check.Available && len(check.ConflictingBookingIDs) > 0 {
			ids := make([]domainbooking.BookingID, 0, len(check.ConflictingBookingIDs))
			for _, id := range check.ConflictingBookingIDs {
				ids = append(ids, domainbooking.BookingID(id))
			}
			return nil, &domainbooking.ConflictError{Conflicts: ids}
		}
	}
	b, err := h.Create.Handle(ctx, CreateBookingCommand{
		ItemID:     cmd.ItemID,
		BorrowerID: cmd.BorrowerID,
		StartDate:  cmd.StartDate,
		EndDate:    cmd.EndDate,
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

var _ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
