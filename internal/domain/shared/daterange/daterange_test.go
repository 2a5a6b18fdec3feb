package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, start, end time.Time) DateRange {
	t.Helper()
	dr, err := New(start, end)
	require.NoError(t, err)
	return dr
}

func TestNew(t *testing.T) {
	t.Run("rejects empty and inverted ranges", func(t *testing.T) {
		_, err := New(date(2026, 1, 3), date(2026, 1, 3))
		assert.ErrorIs(t, err, ErrInvalidRange)

		_, err = New(date(2026, 1, 4), date(2026, 1, 3))
		assert.ErrorIs(t, err, ErrInvalidRange)

		_, err = New(time.Time{}, date(2026, 1, 3))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("truncates to utc midnight", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*60*60)
		dr := mustRange(t, time.Date(2026, 1, 1, 14, 30, 0, 0, loc), time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC))
		assert.Equal(t, date(2026, 1, 1), dr.Start)
		assert.Equal(t, date(2026, 1, 3), dr.End)
	})

	t.Run("same calendar day collapses to invalid", func(t *testing.T) {
		_, err := New(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestDays(t *testing.T) {
	assert.Equal(t, 3, mustRange(t, date(2026, 1, 1), date(2026, 1, 4)).Days())
	assert.Equal(t, 1, mustRange(t, date(2026, 1, 1), date(2026, 1, 2)).Days())
	assert.Equal(t, 31, Month(2026, time.January).Days())

	partial := DateRange{Start: date(2026, 1, 1), End: date(2026, 1, 2).Add(time.Hour)}
	assert.Equal(t, 2, partial.Days())
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{"back to back", DateRange{date(2026, 1, 1), date(2026, 1, 3)}, DateRange{date(2026, 1, 3), date(2026, 1, 5)}, false},
		{"shared day", DateRange{date(2026, 1, 1), date(2026, 1, 3)}, DateRange{date(2026, 1, 2), date(2026, 1, 4)}, true},
		{"contained", DateRange{date(2026, 1, 1), date(2026, 1, 10)}, DateRange{date(2026, 1, 4), date(2026, 1, 5)}, true},
		{"identical", DateRange{date(2026, 1, 1), date(2026, 1, 3)}, DateRange{date(2026, 1, 1), date(2026, 1, 3)}, true},
		{"disjoint", DateRange{date(2026, 1, 1), date(2026, 1, 2)}, DateRange{date(2026, 2, 1), date(2026, 2, 2)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestEach(t *testing.T) {
	var days []time.Time
	mustRange(t, date(2026, 2, 27), date(2026, 3, 2)).Each(func(d time.Time) {
		days = append(days, d)
	})
	assert.Equal(t, []time.Time{date(2026, 2, 27), date(2026, 2, 28), date(2026, 3, 1)}, days)
}

func TestContainsDate(t *testing.T) {
	dr := mustRange(t, date(2026, 1, 1), date(2026, 1, 3))
	assert.True(t, dr.ContainsDate(date(2026, 1, 1)))
	assert.True(t, dr.ContainsDate(date(2026, 1, 2)))
	assert.False(t, dr.ContainsDate(date(2026, 1, 3)))
}
