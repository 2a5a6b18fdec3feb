package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end date must be after start date")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [Start, End) of UTC calendar days.
// End is the return day: a range ending on D and another starting on D do not overlap.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New truncates both bounds to UTC midnight and validates the result.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: StartOfDay(start), End: StartOfDay(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// StartOfDay returns midnight UTC of the calendar day t falls on (in UTC).
func StartOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.End.IsZero() || dr.Start.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days is the number of billable days, rounded up to whole calendar days.
func (dr DateRange) Days() int {
	d := dr.End.Sub(dr.Start)
	if d <= 0 {
		return 0
	}
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.Start) || t.After(dr.Start)) && t.Before(dr.End)
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.End.Equal(other.Start) || dr.Start.Equal(other.End)
}

// Each calls fn for every day in the range, in order.
func (dr DateRange) Each(fn func(day time.Time)) {
	for d := dr.Start; d.Before(dr.End); d = d.Add(day) {
		fn(d)
	}
}

// Month returns the range covering a whole calendar month.
func Month(year int, month time.Month) DateRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 1, 0)}
}
