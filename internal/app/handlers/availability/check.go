package availability

import (
	"context"
	"strings"
	"time"

	"lendit/internal/app/dto"
	"lendit/internal/app/queries"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	domainavailability "lendit/internal/domain/availability"
	"lendit/internal/domain/booking"
	"lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	ItemID    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Clock      clock.Clock
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityCheck, error) {
	dr, err := daterange.New(q.StartDate, q.EndDate)
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	if err := booking.ValidateNotPast(dr, clock.OrSystem(h.Clock).Now()); err != nil {
		return dto.AvailabilityCheck{}, err
	}
	unit, execCtx, release, err := uow.Open(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	defer release()
	_, res, err := Check(execCtx, unit, items.ItemID(strings.TrimSpace(q.ItemID)), dr)
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	return dto.MapAvailabilityCheck(q.ItemID, dr.Start.Format(dto.DateLayout), dr.End.Format(dto.DateLayout), res), nil
}

// Check loads the item and its blocking bookings for dr and evaluates the range.
// It performs no writes and takes no locks.
func Check(ctx context.Context, unit uow.UnitOfWork, itemID items.ItemID, dr daterange.DateRange) (*items.Item, domainavailability.Result, error) {
	item, err := unit.Items().ByID(ctx, itemID)
	if err != nil {
		return nil, domainavailability.Result{}, err
	}
	existing, err := unit.Bookings().Overlapping(ctx, item.ID, dr, booking.BlockingStatuses)
	if err != nil {
		return nil, domainavailability.Result{}, err
	}
	return item, domainavailability.Evaluate(item, dr, existing), nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityCheck] = (*CheckAvailabilityHandler)(nil)
