package me

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"lendit/internal/app/dto"
	"lendit/internal/app/queries"
	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
)

const (
	listBorrowerBookingsKey = "me.bookings.list"
	listLenderBookingsKey   = "me.lendings.list"
	allStatusesFilterValue  = "all"
)

var ErrUserRequired = errors.New("me: user id is required")

type ListBorrowerBookingsQuery struct {
	BorrowerID string `validate:"required"`
}

func (q ListBorrowerBookingsQuery) Key() string   { return listBorrowerBookingsKey }
func (q ListBorrowerBookingsQuery) Actor() string { return q.BorrowerID }

type ListBorrowerBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListBorrowerBookingsHandler) Handle(ctx context.Context, q ListBorrowerBookingsQuery) (dto.BookingCollection, error) {
	borrowerID := strings.TrimSpace(q.BorrowerID)
	if borrowerID == "" {
		return dto.BookingCollection{}, ErrUserRequired
	}
	unit, execCtx, release, err := uow.Open(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()
	bookings, err := unit.Bookings().ListByBorrower(execCtx, borrowerID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sortByStart(bookings)
	if h.Logger != nil {
		h.Logger.Debug("borrower bookings listed", "borrower_id", borrowerID, "count", len(bookings))
	}
	return dto.MapBookings(bookings), nil
}

// ListLenderBookingsQuery lists bookings on the lender's items. An empty status
// means pending, "all" disables the filter.
type ListLenderBookingsQuery struct {
	LenderID string `validate:"required"`
	Status   string
}

func (q ListLenderBookingsQuery) Key() string   { return listLenderBookingsKey }
func (q ListLenderBookingsQuery) Actor() string { return q.LenderID }

type ListLenderBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListLenderBookingsHandler) Handle(ctx context.Context, q ListLenderBookingsQuery) (dto.BookingCollection, error) {
	lenderID := strings.TrimSpace(q.LenderID)
	if lenderID == "" {
		return dto.BookingCollection{}, ErrUserRequired
	}
	filter := strings.ToLower(strings.TrimSpace(q.Status))
	var status domainbooking.Status
	switch filter {
	case "":
		status = domainbooking.StatusPending
	case allStatusesFilterValue:
	default:
		parsed, err := domainbooking.ParseStatus(filter)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		status = parsed
	}

	unit, execCtx, release, err := uow.Open(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()
	bookings, err := unit.Bookings().ListByLender(execCtx, lenderID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	filtered := bookings[:0]
	for _, b := range bookings {
		if status == "" || b.Status == status {
			filtered = append(filtered, b)
		}
	}
	sortByStart(filtered)
	if h.Logger != nil {
		h.Logger.Debug("lender bookings listed", "lender_id", lenderID, "count", len(filtered), "status", filter)
	}
	return dto.MapBookings(filtered), nil
}

func sortByStart(bookings []*domainbooking.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Range.Start.Equal(bookings[j].Range.Start) {
			return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		return bookings[i].Range.Start.Before(bookings[j].Range.Start)
	})
}

var (
	_ queries.Handler[ListBorrowerBookingsQuery, dto.BookingCollection] = (*ListBorrowerBookingsHandler)(nil)
	_ queries.Handler[ListLenderBookingsQuery, dto.BookingCollection]   = (*ListLenderBookingsHandler)(nil)
)
