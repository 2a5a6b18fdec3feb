package availability

import (
	"context"
	"hash/fnv"
	"time"

	"lendit/internal/app/dto"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
)

// DemoCalendarStrategy renders a deterministic synthetic calendar for demos.
// Roughly one day in five is marked booked, keyed by item id and date.
type DemoCalendarStrategy struct {
	DailyRate money.Money
}

func (s DemoCalendarStrategy) Calendar(_ context.Context, itemID string, year int, month time.Month, today time.Time) (dto.Calendar, error) {
	today = daterange.StartOfDay(today)
	days := make([]dto.CalendarDay, 0, 31)
	daterange.Month(year, month).Each(func(day time.Time) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(itemID + day.Format(dto.DateLayout)))
		days = append(days, dto.CalendarDay{
			Date:      day.Format(dto.DateLayout),
			Available: !day.Before(today) && h.Sum32()%5 != 0,
			Price:     dto.MapMoney(s.DailyRate),
		})
	})
	return dto.Calendar{ItemID: itemID, Year: year, Month: int(month), Days: days, Demo: true}, nil
}
