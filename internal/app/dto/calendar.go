package dto

import (
	"lendit/internal/domain/availability"
)

type AvailabilityCheck struct {
	ItemID                string   `json:"item_id"`
	StartDate             string   `json:"start_date"`
	EndDate               string   `json:"end_date"`
	Available             bool     `json:"available"`
	ConflictingBookingIDs []string `json:"conflicting_booking_ids"`
	Days                  int      `json:"days"`
	TotalPrice            MoneyDTO `json:"total_price"`
}

type CalendarDay struct {
	Date      string   `json:"date"`
	Available bool     `json:"available"`
	Price     MoneyDTO `json:"price"`
}

type Calendar struct {
	ItemID string        `json:"item_id"`
	Year   int           `json:"year"`
	Month  int           `json:"month"`
	Days   []CalendarDay `json:"days"`
	Demo   bool          `json:"demo,omitempty"`
}

func MapAvailabilityCheck(itemID, start, end string, res availability.Result) AvailabilityCheck {
	ids := make([]string, 0, len(res.Conflicts))
	for _, id := range res.Conflicts {
		ids = append(ids, string(id))
	}
	return AvailabilityCheck{
		ItemID:                itemID,
		StartDate:             start,
		EndDate:               end,
		Available:             res.Available,
		ConflictingBookingIDs: ids,
		Days:                  res.Days,
		TotalPrice:            MapMoney(res.TotalPrice),
	}
}

func MapCalendarDays(days []availability.Day) []CalendarDay {
	out := make([]CalendarDay, 0, len(days))
	for _, d := range days {
		out = append(out, CalendarDay{
			Date:      d.Date.Format(DateLayout),
			Available: d.Available,
			Price:     MapMoney(d.Price),
		})
	}
	return out
}
