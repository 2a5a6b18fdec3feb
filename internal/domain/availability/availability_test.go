package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendit/internal/domain/booking"
	"lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
)

func date(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, from, to time.Time) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(from, to)
	require.NoError(t, err)
	return dr
}

func newItem(t *testing.T) *items.Item {
	t.Helper()
	item, err := items.NewItem(items.CreateParams{
		ID:        "item-1",
		Owner:     "lender",
		Name:      "Tent",
		DailyRate: money.Must(500, "USD"),
		Now:       date(3, 1),
	})
	require.NoError(t, err)
	return item
}

func existing(t *testing.T, id string, from, to time.Time, status booking.Status) *booking.Booking {
	t.Helper()
	return &booking.Booking{
		ID:         booking.BookingID(id),
		ItemID:     "item-1",
		BorrowerID: "borrower",
		LenderID:   "lender",
		Range:      mustRange(t, from, to),
		Status:     status,
	}
}

func TestEvaluateFreeRange(t *testing.T) {
	res := Evaluate(newItem(t), mustRange(t, date(3, 10), date(3, 13)), nil)
	assert.True(t, res.Available)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 3, res.Days)
	assert.Equal(t, int64(1500), res.TotalPrice.Amount)
}

func TestEvaluateHalfOpenBoundaries(t *testing.T) {
	item := newItem(t)
	held := []*booking.Booking{existing(t, "bk-a", date(3, 10), date(3, 12), booking.StatusConfirmed)}

	overlap := Evaluate(item, mustRange(t, date(3, 11), date(3, 13)), held)
	assert.False(t, overlap.Available)
	assert.Equal(t, []booking.BookingID{"bk-a"}, overlap.Conflicts)

	touching := Evaluate(item, mustRange(t, date(3, 12), date(3, 14)), held)
	assert.True(t, touching.Available)

	before := Evaluate(item, mustRange(t, date(3, 8), date(3, 10)), held)
	assert.True(t, before.Available)
}

func TestEvaluateIgnoresReleasedBookings(t *testing.T) {
	item := newItem(t)
	held := []*booking.Booking{
		existing(t, "bk-c", date(3, 10), date(3, 12), booking.StatusCancelled),
		existing(t, "bk-d", date(3, 10), date(3, 12), booking.StatusCompleted),
		existing(t, "bk-p", date(3, 11), date(3, 15), booking.StatusPending),
	}
	res := Evaluate(item, mustRange(t, date(3, 10), date(3, 12)), held)
	assert.False(t, res.Available)
	assert.Equal(t, []booking.BookingID{"bk-p"}, res.Conflicts)
}

func TestEvaluateOverlapIsSymmetric(t *testing.T) {
	item := newItem(t)
	a := existing(t, "a", date(3, 5), date(3, 9), booking.StatusPending)
	b := existing(t, "b", date(3, 8), date(3, 12), booking.StatusPending)

	ab := Evaluate(item, b.Range, []*booking.Booking{a})
	ba := Evaluate(item, a.Range, []*booking.Booking{b})
	assert.Equal(t, ab.Available, ba.Available)
	assert.False(t, ab.Available)
}

func TestEvaluateUnavailableItem(t *testing.T) {
	item := newItem(t)
	off := false
	require.NoError(t, item.Update(items.UpdateParams{Available: &off, Now: date(3, 2)}))

	res := Evaluate(item, mustRange(t, date(3, 10), date(3, 11)), nil)
	assert.False(t, res.Available)
	assert.True(t, res.ItemBlocked)
	assert.Empty(t, res.Conflicts)
}

func TestCalendar(t *testing.T) {
	item := newItem(t)
	held := []*booking.Booking{
		existing(t, "bk-a", date(3, 10), date(3, 12), booking.StatusConfirmed),
		existing(t, "bk-x", date(3, 20), date(3, 22), booking.StatusCancelled),
	}
	days := Calendar(item, 2026, time.March, held, date(3, 5))
	require.Len(t, days, 31)

	for i, d := range days {
		assert.Equal(t, date(3, i+1), d.Date)
		assert.Equal(t, int64(500), d.Price.Amount)
	}
	assert.False(t, days[3].Available, "past day")
	assert.True(t, days[4].Available, "today")
	assert.False(t, days[9].Available)
	assert.False(t, days[10].Available)
	assert.True(t, days[11].Available, "return day is free")
	assert.True(t, days[19].Available, "cancelled booking does not block")
}
