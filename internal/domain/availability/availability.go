package availability

import (
	"sort"
	"time"

	"lendit/internal/domain/booking"
	"lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
)

type Result struct {
	Available   bool
	Conflicts   []booking.BookingID
	TotalPrice  money.Money
	Days        int
	ItemBlocked bool
}

// Evaluate checks a candidate range against the item's existing bookings.
// Only bookings in a blocking status take part; ranges are half-open so a
// booking ending on the candidate's start day does not conflict.
func Evaluate(item *items.Item, dr daterange.DateRange, existing []*booking.Booking) Result {
	days := dr.Days()
	result := Result{
		Days:       days,
		TotalPrice: item.DailyRate.ForDays(days),
	}
	overlapping := make([]*booking.Booking, 0)
	for _, b := range existing {
		if b == nil || b.ItemID != item.ID || !b.Status.Blocks() {
			continue
		}
		if b.Range.Overlaps(dr) {
			overlapping = append(overlapping, b)
		}
	}
	sort.SliceStable(overlapping, func(i, j int) bool {
		if overlapping[i].Range.Start.Equal(overlapping[j].Range.Start) {
			return overlapping[i].ID < overlapping[j].ID
		}
		return overlapping[i].Range.Start.Before(overlapping[j].Range.Start)
	})
	result.Conflicts = make([]booking.BookingID, 0, len(overlapping))
	for _, b := range overlapping {
		result.Conflicts = append(result.Conflicts, b.ID)
	}
	result.ItemBlocked = !item.Bookable()
	result.Available = !result.ItemBlocked && len(result.Conflicts) == 0
	return result
}

type Day struct {
	Date      time.Time
	Available bool
	Price     money.Money
}

// Calendar summarizes every day of the month in order. Days before today are
// never available.
func Calendar(item *items.Item, year int, month time.Month, existing []*booking.Booking, today time.Time) []Day {
	span := daterange.Month(year, month)
	today = daterange.StartOfDay(today)
	blocking := make([]daterange.DateRange, 0, len(existing))
	for _, b := range existing {
		if b == nil || b.ItemID != item.ID || !b.Status.Blocks() {
			continue
		}
		if b.Range.Overlaps(span) {
			blocking = append(blocking, b.Range)
		}
	}
	bookable := item.Bookable()
	days := make([]Day, 0, span.Days())
	span.Each(func(day time.Time) {
		free := bookable && !day.Before(today)
		for i := 0; free && i < len(blocking); i++ {
			if blocking[i].ContainsDate(day) {
				free = false
			}
		}
		days = append(days, Day{Date: day, Available: free, Price: item.DailyRate})
	})
	return days
}
