package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/events"
	"lendit/internal/domain/shared/money"
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// BlockingStatuses are the states that occupy an item's calendar.
var BlockingStatuses = []Status{StatusPending, StatusConfirmed}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
}

// Blocks reports whether a booking in this state prevents overlapping bookings.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether the state machine has an edge from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID            BookingID
	ItemID        items.ItemID
	BorrowerID    string
	LenderID      string
	Range         daterange.DateRange
	DailyRate     money.Money
	Total         money.Money
	Status        Status
	PaymentStatus PaymentStatus
	CancelledBy   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	Overlapping(ctx context.Context, itemID items.ItemID, dr daterange.DateRange, statuses []Status) ([]*Booking, error)
	ListByBorrower(ctx context.Context, borrowerID string) ([]*Booking, error)
	ListByLender(ctx context.Context, lenderID string) ([]*Booking, error)
	ListEndedBefore(ctx context.Context, status Status, end time.Time, limit int) ([]*Booking, error)
}

type CreateParams struct {
	ID         BookingID
	ItemID     items.ItemID
	BorrowerID string
	LenderID   string
	Range      daterange.DateRange
	DailyRate  money.Money
	CreatedAt  time.Time
}

// NewBooking creates a pending booking with the price snapshotted from the daily rate.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id required")
	}
	if strings.TrimSpace(params.BorrowerID) == "" {
		return nil, errors.New("booking: borrower id required")
	}
	if strings.TrimSpace(params.LenderID) == "" {
		return nil, errors.New("booking: lender id required")
	}
	if params.BorrowerID == params.LenderID {
		return nil, ErrSelfBooking
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.DailyRate.IsNegative() {
		return nil, items.ErrNegativeRate
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		ItemID:        params.ItemID,
		BorrowerID:    params.BorrowerID,
		LenderID:      params.LenderID,
		Range:         params.Range,
		DailyRate:     params.DailyRate,
		Total:         params.DailyRate.ForDays(params.Range.Days()),
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		ItemID:     b.ItemID,
		BorrowerID: b.BorrowerID,
		LenderID:   b.LenderID,
		Range:      b.Range,
		Total:      b.Total,
		At:         now,
	})
	return b, nil
}

func (b *Booking) IsParty(actor string) bool {
	actor = strings.TrimSpace(actor)
	return actor != "" && (actor == b.BorrowerID || actor == b.LenderID)
}

// Transition applies a status change requested by one of the parties.
// The record is left untouched when an error is returned.
func (b *Booking) Transition(to Status, actor string, now time.Time) error {
	if !b.IsParty(actor) {
		return ErrForbidden
	}
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, b.Status, to)
	}
	switch to {
	case StatusConfirmed:
		if actor != b.LenderID {
			return fmt.Errorf("%w: only the lender can approve", ErrForbidden)
		}
		return b.Confirm(now)
	case StatusCancelled:
		return b.Cancel(actor, now)
	case StatusCompleted:
		return b.Complete(now)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, b.Status, to)
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidStateTransition
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ItemID: b.ItemID, Range: b.Range, Total: b.Total, At: b.UpdatedAt})
	return nil
}

// Cancel frees the item's calendar. Pending bookings may only be cancelled before
// the start date; confirmed ones until the end date.
func (b *Booking) Cancel(actor string, now time.Time) error {
	now = now.UTC()
	switch b.Status {
	case StatusPending:
		if !now.Before(b.Range.Start) {
			return fmt.Errorf("%w: booking already started", ErrInvalidStateTransition)
		}
	case StatusConfirmed:
		if !now.Before(b.Range.End) {
			return fmt.Errorf("%w: booking already ended", ErrInvalidStateTransition)
		}
	default:
		return ErrInvalidStateTransition
	}
	b.Status = StatusCancelled
	b.CancelledBy = actor
	b.UpdatedAt = now
	b.Record(BookingCancelled{BookingID: b.ID, ItemID: b.ItemID, CancelledBy: actor, At: now})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidStateTransition
	}
	if now.UTC().Before(b.Range.End) {
		return fmt.Errorf("%w: rental period has not ended", ErrInvalidStateTransition)
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, ItemID: b.ItemID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkPaid(reference string, now time.Time) error {
	if b.Status.Terminal() || b.PaymentStatus == PaymentPaid {
		return ErrInvalidStateTransition
	}
	b.PaymentStatus = PaymentPaid
	b.UpdatedAt = now.UTC()
	b.Record(PaymentSettled{BookingID: b.ID, Reference: reference, Amount: b.Total, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkPaymentFailed(reason string, now time.Time) error {
	if b.Status.Terminal() || b.PaymentStatus == PaymentPaid {
		return ErrInvalidStateTransition
	}
	b.PaymentStatus = PaymentFailed
	b.UpdatedAt = now.UTC()
	b.Record(PaymentFailedEvent{BookingID: b.ID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Clone returns a copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	clone := *b
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}

// ValidateNotPast rejects ranges starting before the current UTC day.
func ValidateNotPast(dr daterange.DateRange, now time.Time) error {
	if dr.Start.Before(daterange.StartOfDay(now)) {
		return ErrPastDateRange
	}
	return nil
}
