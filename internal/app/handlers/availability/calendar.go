package availability

import (
	"context"
	"errors"
	"log/slog"
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

const monthCalendarKey = "availability.calendar"

var ErrInvalidMonth = errors.New("availability: month must be 1-12 and year 1-9999")

type MonthCalendarQuery struct {
	ItemID string `validate:"required"`
	Year   int
	Month  int
}

func (q MonthCalendarQuery) Key() string { return monthCalendarKey }

// CalendarStrategy produces a calendar when the real lookup cannot.
type CalendarStrategy interface {
	Calendar(ctx context.Context, itemID string, year int, month time.Month, today time.Time) (dto.Calendar, error)
}

type MonthCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Clock      clock.Clock
	Logger     *slog.Logger
	// Fallback is consulted only for infrastructure failures, never for
	// not-found or validation errors.
	Fallback CalendarStrategy
}

func (h *MonthCalendarHandler) Handle(ctx context.Context, q MonthCalendarQuery) (dto.Calendar, error) {
	if q.Month < 1 || q.Month > 12 || q.Year < 1 || q.Year > 9999 {
		return dto.Calendar{}, ErrInvalidMonth
	}
	itemID := strings.TrimSpace(q.ItemID)
	today := clock.OrSystem(h.Clock).Now()
	cal, err := h.load(ctx, itemID, q.Year, time.Month(q.Month), today)
	if err == nil || h.Fallback == nil || isDomainError(err) {
		return cal, err
	}
	if h.Logger != nil {
		h.Logger.Warn("calendar lookup failed, serving demo calendar", "item_id", itemID, "error", err)
	}
	return h.Fallback.Calendar(ctx, itemID, q.Year, time.Month(q.Month), today)
}

func (h *MonthCalendarHandler) load(ctx context.Context, itemID string, year int, month time.Month, today time.Time) (dto.Calendar, error) {
	unit, execCtx, release, err := uow.Open(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Calendar{}, err
	}
	defer release()
	item, err := unit.Items().ByID(execCtx, items.ItemID(itemID))
	if err != nil {
		return dto.Calendar{}, err
	}
	existing, err := unit.Bookings().Overlapping(execCtx, item.ID, daterange.Month(year, month), booking.BlockingStatuses)
	if err != nil {
		return dto.Calendar{}, err
	}
	days := domainavailability.Calendar(item, year, month, existing, today)
	return dto.Calendar{
		ItemID: itemID,
		Year:   year,
		Month:  int(month),
		Days:   dto.MapCalendarDays(days),
	}, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, items.ErrItemNotFound) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, context.Canceled)
}

var _ queries.Handler[MonthCalendarQuery, dto.Calendar] = (*MonthCalendarHandler)(nil)
