package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	handleravailability "lendit/internal/app/handlers/availability"
	"lendit/internal/app/outbox"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	domainbooking "lendit/internal/domain/booking"
	"lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
)

type CreateBookingCommand struct {
	BookingID  string
	ItemID     string
	BorrowerID string
	StartDate  time.Time
	EndDate    time.Time
}

// CreateBookingHandler persists a pending booking after re-checking
// availability while holding the item's lock.
type CreateBookingHandler struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       clock.Clock
	IDGenerator func() string
	Logger      *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*domainbooking.Booking, error) {
	dr, err := daterange.New(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	now := clock.OrSystem(h.Clock).Now().UTC()
	if err := domainbooking.ValidateNotPast(dr, now); err != nil {
		return nil, err
	}
	borrower := strings.TrimSpace(cmd.BorrowerID)
	itemID := items.ItemID(strings.TrimSpace(cmd.ItemID))

	var created *domainbooking.Booking
	err = uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.LockItem(ctx, itemID); err != nil {
			if errors.Is(err, uow.ErrTransient) {
				return h.recheckAfterAbort(ctx, itemID, dr, err)
			}
			return err
		}
		item, res, err := handleravailability.Check(ctx, unit, itemID, dr)
		if err != nil {
			return err
		}
		if res.ItemBlocked {
			return items.ErrItemUnavailable
		}
		if item.OwnedBy(borrower) {
			return domainbooking.ErrSelfBooking
		}
		if !res.Available {
			if h.Logger != nil {
				h.Logger.Info("booking conflict", "item_id", item.ID, "borrower_id", borrower, "conflicts", res.Conflicts)
			}
			return &domainbooking.ConflictError{Conflicts: res.Conflicts}
		}
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:         domainbooking.BookingID(h.bookingID(cmd.BookingID)),
			ItemID:     item.ID,
			BorrowerID: borrower,
			LenderID:   string(item.Owner),
			Range:      dr,
			DailyRate:  item.DailyRate,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := outbox.Record(ctx, h.Outbox, h.Encoder, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking created", "booking_id", created.ID, "item_id", created.ItemID, "borrower_id", created.BorrowerID, "total", created.Total.Amount)
	}
	return created, nil
}

// recheckAfterAbort runs when a concurrent writer holds the item. A committed
// overlap seen from a fresh read-only unit is a definite conflict; otherwise
// lockErr is returned so the transaction is retried.
func (h *CreateBookingHandler) recheckAfterAbort(ctx context.Context, itemID items.ItemID, dr daterange.DateRange, lockErr error) error {
	if h.UoWFactory == nil {
		return lockErr
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return lockErr
	}
	readCtx := uow.Bind(ctx, unit)
	defer func() { _ = unit.Rollback(readCtx) }()
	_, res, err := handleravailability.Check(readCtx, unit, itemID, dr)
	if err != nil || res.Available || res.ItemBlocked {
		return lockErr
	}
	if h.Logger != nil {
		h.Logger.Info("booking conflict after lock contention", "item_id", itemID, "conflicts", res.Conflicts)
	}
	return &domainbooking.ConflictError{Conflicts: res.Conflicts}
}

func (h *CreateBookingHandler) bookingID(requested string) string {
	if id := strings.TrimSpace(requested); id != "" {
		return id
	}
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}
