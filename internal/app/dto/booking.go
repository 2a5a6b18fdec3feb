package dto

import (
	"time"

	domainbooking "lendit/internal/domain/booking"
	"lendit/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Booking struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	BorrowerID    string    `json:"borrower_id"`
	LenderID      string    `json:"lender_id"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Days          int       `json:"days"`
	DailyRate     MoneyDTO  `json:"daily_rate"`
	TotalPrice    MoneyDTO  `json:"total_price"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

const DateLayout = "2006-01-02"

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:            string(b.ID),
		ItemID:        string(b.ItemID),
		BorrowerID:    b.BorrowerID,
		LenderID:      b.LenderID,
		StartDate:     b.Range.Start.Format(DateLayout),
		EndDate:       b.Range.End.Format(DateLayout),
		Days:          b.Range.Days(),
		DailyRate:     MapMoney(b.DailyRate),
		TotalPrice:    MapMoney(b.Total),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func MapBookings(bookings []*domainbooking.Booking) BookingCollection {
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, MapBooking(b))
	}
	return BookingCollection{Items: out}
}
