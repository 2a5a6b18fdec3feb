package booking

import (
	"time"

	"lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID  BookingID           `json:"booking_id"`
	ItemID     items.ItemID        `json:"item_id"`
	BorrowerID string              `json:"borrower_id"`
	LenderID   string              `json:"lender_id"`
	Range      daterange.DateRange `json:"range"`
	Total      money.Money         `json:"total"`
	At         time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID           `json:"booking_id"`
	ItemID    items.ItemID        `json:"item_id"`
	Range     daterange.DateRange `json:"range"`
	Total     money.Money         `json:"total"`
	At        time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID   BookingID    `json:"booking_id"`
	ItemID      items.ItemID `json:"item_id"`
	CancelledBy string       `json:"cancelled_by"`
	At          time.Time    `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID    `json:"booking_id"`
	ItemID    items.ItemID `json:"item_id"`
	At        time.Time    `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type PaymentSettled struct {
	BookingID BookingID   `json:"booking_id"`
	Reference string      `json:"reference"`
	Amount    money.Money `json:"amount"`
	At        time.Time   `json:"at"`
}

func (e PaymentSettled) EventName() string     { return "booking.payment_settled" }
func (e PaymentSettled) AggregateID() string   { return string(e.BookingID) }
func (e PaymentSettled) OccurredAt() time.Time { return e.At }

type PaymentFailedEvent struct {
	BookingID BookingID `json:"booking_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e PaymentFailedEvent) EventName() string     { return "booking.payment_failed" }
func (e PaymentFailedEvent) AggregateID() string   { return string(e.BookingID) }
func (e PaymentFailedEvent) OccurredAt() time.Time { return e.At }
